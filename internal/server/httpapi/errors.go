package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/devicegate/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusOf maps a service error onto an HTTP status code.
func statusOf(err error) int {
	switch common.KindOf(err) {
	case common.KindValidation:
		switch {
		case common.IsThrottled(err):
			return http.StatusTooManyRequests
		case errors.Is(err, common.ErrorContentTooLarge):
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	kind := common.KindOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err.Error(), "kind", kind.String())
		msg = "internal error"
	}
	writeJSON(w, code, errorResponse{Error: msg, Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
