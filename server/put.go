package server

import (
	"encoding/json"
	"mime"
	"net/http"

	ld "github.com/piprate/json-gold/ld"

	types "github.com/underlay/styx-client/types"
)

// Put handles HTTP PUT requests, replacing the addressed graph
func (s *Server) Put(res http.ResponseWriter, req *http.Request) error {
	origin, err := target(req)
	if err != nil {
		res.WriteHeader(http.StatusBadRequest)
		return err
	}

	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		// Content-Type is required for all requests.
		res.WriteHeader(http.StatusBadRequest)
		return err
	}

	var quads []types.Quad
	switch mediaType {
	case MediaTypeJSON:
		var wire []types.WireQuad
		if err := json.NewDecoder(req.Body).Decode(&wire); err != nil {
			res.WriteHeader(http.StatusBadRequest)
			return err
		}
		quads, err = types.QuadsFromWire(wire)
	case MediaTypeJSONLD:
		quads, err = s.parseJSONLD(req)
	default:
		res.WriteHeader(http.StatusUnsupportedMediaType)
		return nil
	}

	if err != nil {
		res.WriteHeader(http.StatusBadRequest)
		return err
	}

	for _, q := range quads {
		for _, term := range q.Terms() {
			if !types.IsGround(term) {
				res.WriteHeader(http.StatusBadRequest)
				return &types.ValidationError{Reason: "stored graphs cannot contain variables"}
			}
		}
	}

	if err := s.store.Set(origin, quads); err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		return err
	}

	s.logger.Info("stored graph", "target", origin.String(), "quads", len(quads))
	res.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) parseJSONLD(req *http.Request) ([]types.Quad, error) {
	var doc interface{}
	if err := json.NewDecoder(req.Body).Decode(&doc); err != nil {
		return nil, err
	}

	opts := ld.NewJsonLdOptions("")
	opts.DocumentLoader = s.loader
	out, err := ld.NewJsonLdProcessor().ToRDF(doc, opts)
	if err != nil {
		return nil, err
	}

	dataset, is := out.(*ld.RDFDataset)
	if !is {
		return nil, &types.ValidationError{Reason: "document did not produce a dataset"}
	}

	return types.FromRDF(dataset)
}
