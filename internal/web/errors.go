package web

import (
	"net/http"

	"github.com/shurcooL/httperror"
)

// apiHandler is a JSON endpoint that reports failures by returning an error.
type apiHandler struct {
	s       *Server
	handler func(w http.ResponseWriter, req *http.Request) error
}

func (s *Server) api(h func(w http.ResponseWriter, req *http.Request) error) http.Handler {
	return apiHandler{s: s, handler: h}
}

func (h apiHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rw := &headerResponseWriter{ResponseWriter: w}
	err := h.handler(rw, req)
	if err == nil {
		return
	}
	if rw.WroteHeader {
		// Too late to send a different status code.
		h.s.log.Error("request failed after response started", "path", req.URL.Path, "error", err)
		return
	}
	if err, ok := httperror.IsBadRequest(err); ok {
		writeError(w, http.StatusBadRequest, err.Err.Error())
		return
	}
	if err, ok := httperror.IsHTTP(err); ok {
		writeError(w, err.Code, err.Err.Error())
		return
	}

	h.s.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// headerResponseWriter wraps a real http.ResponseWriter and captures
// whether or not the header has been written.
type headerResponseWriter struct {
	http.ResponseWriter

	WroteHeader bool // Write or WriteHeader was called.
}

func (rw *headerResponseWriter) Write(p []byte) (n int, err error) {
	rw.WroteHeader = true
	return rw.ResponseWriter.Write(p)
}

func (rw *headerResponseWriter) WriteHeader(code int) {
	rw.WroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}
