package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/Ning0612/devmanager/internal/domain"
)

// EditorPath is where /edit redirects when neither list nor path is given
const EditorPath = "/ap/editor.html"

// maxUploadMemory bounds the in-memory part of a multipart form
const maxUploadMemory = 32 << 20

// handleEdit serves the file-manager endpoint: ?list=<dir> returns a JSON
// listing, ?path=<p> returns raw file content
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Empty values count as absent, like the firmware's argument checks
	switch {
	case q.Get("list") != "":
		dir := q.Get("list")
		entries, err := s.lister.List(r.Context(), dir)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	case q.Get("path") != "":
		name := q.Get("path")
		info, err := s.fs.Stat(r.Context(), name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if !info.IsFile() {
			s.writeError(w, domain.ErrNotFile)
			return
		}
		if q.Get("download") != "" {
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
				"filename": path.Base(info.Path),
			}))
		}
		s.serveFile(w, r, info.Path, false)

	default:
		http.Redirect(w, r, EditorPath, http.StatusFound)
	}
}

// handleConfig returns the fixed example configuration document
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ExampleConfig())
}

// echo logs the submitted parameters and returns them. Nothing persists.
func (s *Server) echo(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := formParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logEcho(route, r.Method, params)
		writeJSON(w, http.StatusOK, params)
	}
}

// handleUpload logs form fields and the name and size of each uploaded
// file. The content is discarded.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	params, err := formParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logEcho("/editu", r.Method, params)

	type upload struct {
		Field string `json:"field"`
		Name  string `json:"name"`
		Size  int64  `json:"size"`
	}
	uploads := []upload{}
	if r.MultipartForm != nil {
		for field, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				uploads = append(uploads, upload{Field: field, Name: fh.Filename, Size: fh.Size})
				s.log.Info("upload received", "field", field, "name", fh.Filename, "size", fh.Size)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"params": params,
		"files":  uploads,
	})
}

func (s *Server) logEcho(route, method string, params map[string]string) {
	if m := s.opts.Metrics; m != nil {
		m.RecordEcho(route)
	}
	s.log.Info("mock api request",
		"route", route,
		"method", method,
		"params", strings.Join(s.sanitizer.SanitizeParams(params), " "),
	)
}

// formParams returns the first value of every query and body parameter
func formParams(r *http.Request) (map[string]string, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxUploadMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, err
	}

	params := make(map[string]string, len(r.Form))
	for k, v := range r.Form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params, nil
}

// writeError maps domain errors onto status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotDirectory),
		errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFile):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
