package middleware

import (
	"fmt"
	"net/http"

	"github.com/ifeis/server/internal/api/problem"
)

// DefaultMaxBodySize bounds JSON request bodies. Attachments are stored
// elsewhere, so no route needs more.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize rejects a declared Content-Length over maxBytes straight away
// and caps every other body with http.MaxBytesReader, so decoding a chunked
// body that runs over fails in the handler with the same 413.
func RequestSize(maxBytes int64, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				err := fmt.Errorf("body of %d bytes exceeds %d", r.ContentLength, maxBytes)
				problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.Type("payload-too-large"), "Request body too large", err, env)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
