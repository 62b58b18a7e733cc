package api

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/Ning0612/devmanager/internal/core/checksum"
	"github.com/Ning0612/devmanager/internal/resolver"
)

// assetsDir is preferred for /assets/ requests when it exists under root
const assetsDir = "src"

// handleStatic resolves any path no other route claims. ?auto=0 turns off
// the directory index lookup.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	opts := resolver.Options{
		AutoIndex:     autoIndex(r),
		AllowListing:  !s.opts.Static,
		RedirectIndex: s.opts.RedirectIndex,
	}
	s.writeOutcome(w, r, s.resolver.Resolve(r.Context(), r.URL.Path, opts))
}

// handleAssets resolves against root/src when that directory exists
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path
	if info, err := s.fs.Stat(r.Context(), assetsDir); err == nil && info.IsDir() {
		name = path.Join(assetsDir, r.PathValue("path"))
	}
	s.writeOutcome(w, r, s.resolver.Resolve(r.Context(), name, resolver.Options{}))
}

func autoIndex(r *http.Request) bool {
	q := r.URL.Query()
	if !q.Has("auto") {
		return true
	}
	v, err := strconv.ParseBool(q.Get("auto"))
	if err != nil {
		return true
	}
	return v
}

// writeOutcome turns a resolver outcome into a response
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out resolver.Outcome) {
	if m := s.opts.Metrics; m != nil {
		m.RecordResolverOutcome(out.Kind.String())
	}

	switch out.Kind {
	case resolver.ServeFile:
		s.serveFile(w, r, out.Path, false)
	case resolver.ServeCompressed:
		s.serveFile(w, r, out.Path, true)
	case resolver.RedirectTo:
		http.Redirect(w, r, out.Path, http.StatusFound)
	case resolver.DirectoryListing:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, out.Body)
	case resolver.Forbidden:
		http.Error(w, out.Reason, http.StatusForbidden)
	default:
		http.Error(w, out.Reason, http.StatusNotFound)
	}
}

// serveFile streams a root-relative file with an MD5 ETag. A compressed
// file is sent as-is with Content-Encoding gzip and the content type of
// its uncompressed name.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name string, compressed bool) {
	ctx := r.Context()

	info, err := s.fs.Stat(ctx, name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	etag, err := s.etags.ETag(ctx, name, info.Size, info.ModTime, func() (io.ReadCloser, error) {
		return s.fs.Read(ctx, name)
	})
	if err != nil {
		s.log.Debug("etag unavailable", "path", name, "error", err)
	} else {
		w.Header().Set("ETag", etag)
		if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	rc, err := s.fs.Read(ctx, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer rc.Close()

	served := name
	if compressed {
		served = strings.TrimSuffix(name, ".gz")
		ctype := mime.TypeByExtension(path.Ext(served))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Content-Encoding", "gzip")
	}

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(served), info.ModTime, rs)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		if ctype := mime.TypeByExtension(path.Ext(served)); ctype != "" {
			w.Header().Set("Content-Type", ctype)
		}
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		io.Copy(w, rc)
	}
}
