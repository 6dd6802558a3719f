package styx

import (
	"encoding/json"
	"errors"

	uuid "github.com/google/uuid"
	ld "github.com/piprate/json-gold/ld"

	types "github.com/underlay/styx-client/types"
	vocab "github.com/underlay/styx-client/vocab"
)

// ErrNotDataset means the JSON-LD processor did not produce a dataset
var ErrNotDataset = errors.New("JSON-LD lowering did not produce a dataset")

// Lower converts a JSON-LD query document into pattern quads. Every
// call binds the "?" prefix to a fresh namespace, so "?:name" ids and
// properties become the variable ?name and never collide with the
// variables of another call.
func (c *Client) Lower(doc interface{}) ([]types.Quad, error) {
	namespace := vocab.MakeNamespace(uuid.New().String())
	return lower(doc, namespace, c.loader)
}

func lower(doc interface{}, namespace string, loader ld.DocumentLoader) ([]types.Quad, error) {
	input, err := normalize(doc)
	if err != nil {
		return nil, err
	}

	options := ld.NewJsonLdOptions("")
	options.ProduceGeneralizedRdf = true
	options.DocumentLoader = loader
	options.ExpandContext = map[string]interface{}{"?": namespace}

	out, err := ld.NewJsonLdProcessor().ToRDF(input, options)
	if err != nil {
		return nil, err
	}

	dataset, is := out.(*ld.RDFDataset)
	if !is {
		return nil, ErrNotDataset
	}

	quads, err := types.FromRDF(dataset)
	if err != nil {
		return nil, err
	}

	for i, q := range quads {
		quads[i] = types.VariateQuad(q, namespace)
	}

	return quads, nil
}

// normalize round-trips doc through encoding/json so that json-gold
// only ever sees maps, slices and scalars
func normalize(doc interface{}) (interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return input, nil
}
