package server

import (
	"net/http"
)

// Delete handles HTTP DELETE requests
func (s *Server) Delete(res http.ResponseWriter, req *http.Request) error {
	origin, err := target(req)
	if err != nil {
		res.WriteHeader(http.StatusBadRequest)
		return err
	}

	err = s.store.Delete(origin)
	if err == ErrNotFound {
		res.WriteHeader(http.StatusNotFound)
		return nil
	} else if err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		return err
	}

	s.logger.Info("deleted graph", "target", origin.String())
	res.WriteHeader(http.StatusNoContent)
	return nil
}
