package server

import (
	"encoding/json"
	"net/http"

	content "github.com/joeltg/negotiate/content"
	ld "github.com/piprate/json-gold/ld"

	types "github.com/underlay/styx-client/types"
)

// Get handles HTTP GET requests. The root always exists and is empty
// until something is stored there.
func (s *Server) Get(res http.ResponseWriter, req *http.Request) error {
	origin, err := target(req)
	if err != nil {
		res.WriteHeader(http.StatusBadRequest)
		return err
	}

	quads, err := s.store.Get(origin)
	if err == ErrNotFound && origin == types.Default {
		quads = []types.Quad{}
	} else if err == ErrNotFound {
		res.WriteHeader(http.StatusNotFound)
		return nil
	} else if err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		return err
	}

	var body interface{}
	format := content.NegotiateContentType(req, offers, offers[0])
	switch format {
	case MediaTypeJSONLD:
		dataset, err := types.ToRDF(quads)
		if err != nil {
			res.WriteHeader(http.StatusInternalServerError)
			return err
		}

		// the processor only accepts serialized input, so go through the api
		opts := ld.NewJsonLdOptions("")
		opts.DocumentLoader = s.loader
		body, err = ld.NewJsonLdApi().FromRDF(dataset, opts)
		if err != nil {
			res.WriteHeader(http.StatusInternalServerError)
			return err
		}
	default:
		body = types.QuadsToWire(quads)
	}

	data, err := json.Marshal(body)
	if err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		return err
	}

	res.Header().Set("Content-Type", format)
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(data)
	return nil
}
