package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/shipgrid/backend-import/internal/common"
)

// BodyLimit caps request payloads. Quote and deposit bodies are small JSON documents.
type BodyLimit struct {
	Max int64
}

// Middleware buffers at most Max bytes of the body and answers 413 past that.
// Bodiless methods pass straight through.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			b.reject(w)
			return
		}

		buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.Max))
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			b.reject(w)
			return
		case err != nil:
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) reject(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large",
		map[string]int64{"maxBytes": b.Max})
}
