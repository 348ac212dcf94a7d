package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/api/problem"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
)

// FieldError is a malformed request field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// base carries what every handler needs to write errors.
type base struct {
	Env string
}

// fail writes err as a problem document using its domain kind.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.Type("payload-too-large"), "Request body too large", err, b.Env)
		return
	}
	problem.Error(w, r, err, b.Env)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// noContent answers a successful mutation that has nothing to return.
func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads the request body into dst. Unknown fields are ignored;
// an empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return err
	default:
		return errs.Invalid("Malformed JSON body: %s", err.Error())
	}
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

// idParam returns a ULID path value. A malformed id is reported as a 400.
func idParam(r *http.Request, key string) (string, error) {
	value := pathParam(r, key)
	if value == "" {
		return "", errs.Invalid("%s", FieldError{Field: key, Message: "missing"}.Error())
	}
	if err := ids.ValidateULID(value); err != nil {
		return "", errs.Invalid("%s", FieldError{Field: key, Message: "invalid ULID"}.Error())
	}
	return value, nil
}

// idParams resolves several ULID path values at once.
func idParams(r *http.Request, keys ...string) ([]string, error) {
	out := make([]string, len(keys))
	for i, key := range keys {
		v, err := idParam(r, key)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func intParam(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(pathParam(r, key))
	if err != nil {
		return 0, errs.Invalid("%s", FieldError{Field: key, Message: "must be a number"}.Error())
	}
	return n, nil
}

// queryInt parses an optional non-negative query value.
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Invalid("%s", FieldError{Field: key, Message: fmt.Sprintf("invalid value %q", raw)}.Error())
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

func caller(r *http.Request) auth.Caller {
	return middleware.CallerFrom(r.Context())
}

// respondList writes the slice fn returns, or [] when it is empty.
func respondList[T any](w http.ResponseWriter, r *http.Request, b base, fn func() ([]T, error)) {
	list, err := fn()
	if err != nil {
		b.fail(w, r, err)
		return
	}
	if list == nil {
		list = []T{}
	}
	writeJSON(w, http.StatusOK, list)
}

func respondOne[T any](w http.ResponseWriter, r *http.Request, b base, status int, fn func() (*T, error)) {
	v, err := fn()
	if err != nil {
		b.fail(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

// respondBody decodes the request body into In and writes what fn makes of it.
func respondBody[In, T any](w http.ResponseWriter, r *http.Request, b base, status int, fn func(In) (*T, error)) {
	var in In
	if err := decodeJSON(r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	respondOne(w, r, b, status, func() (*T, error) { return fn(in) })
}

func respondDone(w http.ResponseWriter, r *http.Request, b base, fn func() error) {
	if err := fn(); err != nil {
		b.fail(w, r, err)
		return
	}
	noContent(w)
}
