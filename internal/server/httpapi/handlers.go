package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/gorilla/mux"
)

const maxJSONBody = 4 << 10

type requestCodeRequest struct {
	Email    string `json:"email"`
	DeviceID string `json:"device_id"`
}

type verifyCodeRequest struct {
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
}

type fileResponse struct {
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toFileResponse(f *models.StoredFile) fileResponse {
	return fileResponse{FileName: f.FileName, Size: f.SizeBytes, SHA256: f.SHA256, UpdatedAt: f.UpdatedAt}
}

var errBadBody = fmt.Errorf("%w: invalid request body", common.ErrorValidation)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestCode issues a code to the notifier. The code never appears in the
// response.
func (s *Server) requestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.auth.RequestCode(r.Context(), req.Email, req.DeviceID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.VerifyCode(r.Context(), req.DeviceID, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing session token", Kind: common.KindUnauthorized.String()})
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putFile(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if s.maxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	file, err := s.files.Upload(r.Context(), userIDFromContext(r.Context()), mux.Vars(r)["name"], body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = common.ErrorContentTooLarge
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(file))
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	d, err := s.files.Download(r.Context(), userIDFromContext(r.Context()), mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer d.Close()

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.FormatInt(d.File.SizeBytes, 10))
	h.Set("X-Content-SHA256", d.File.SHA256)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.File.FileName}))
	w.WriteHeader(http.StatusOK)

	// Headers are gone at this point, a failure can only cut the body short.
	if n, err := d.WriteTo(w); err != nil {
		s.logger.Error(r.Context(), "download interrupted", "file_name", d.File.FileName,
			"written", n, "error", err.Error())
	}
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}
