package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handler returns the routed API with request id and access log middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.loggingMiddleware)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	r.HandleFunc("/auth/code/request", s.requestCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/code/verify", s.verifyCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)

	files := r.PathPrefix("/files").Subrouter()
	files.Use(s.sessionMiddleware)
	files.HandleFunc("", s.listFiles).Methods(http.MethodGet)
	files.HandleFunc("/{name}", s.putFile).Methods(http.MethodPut)
	files.HandleFunc("/{name}", s.getFile).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Kind: "NOT_FOUND"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Kind: "VALIDATION"})
	})

	return r
}
