// Package problem writes RFC 9457 problem documents.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const typeBase = "https://ifeis.net/problems/"

type Details struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Type returns the type URI for a problem slug.
func Type(slug string) string {
	return typeBase + slug
}

// Write renders a problem document and logs err through the request logger.
// Client errors carry the error's user-facing message, or its text, as the
// detail; server errors only do so in development and test.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string) {
	d := Details{Type: typ, Title: title, Status: status, Errors: errs.Fields(err)}

	if err != nil {
		switch {
		case status < http.StatusInternalServerError:
			d.Detail = errs.Message(err)
			if d.Detail == "" {
				d.Detail = err.Error()
			}
		case env == "development" || env == "test":
			d.Detail = err.Error()
		default:
			d.Detail = http.StatusText(status)
		}
	}

	if r != nil {
		d.Instance = r.URL.Path
		if err != nil {
			logger := zerolog.Ctx(r.Context())
			event := logger.Warn()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.Err(err).Int("status", status).Str("type", typ).Str("method", r.Method).Str("path", r.URL.Path).Msg(title)
		}
	}

	body, mErr := json.Marshal(d)
	if mErr != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"type":"about:blank","title":"Internal Server Error","status":500}`)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error maps a domain error to its status and writes it.
func Error(w http.ResponseWriter, r *http.Request, err error, env string) {
	status, slug, title := classify(err)
	Write(w, r, status, Type(slug), title, err, env)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not-found", "Not found"
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "invalid-request", "Invalid request"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict", "Conflict"
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "Authentication required"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden", "Forbidden"
	default:
		return http.StatusInternalServerError, "server-error", "Server error"
	}
}
