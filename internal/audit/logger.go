// Package audit records who changed what on a feis: grants, invitations,
// finalization, offline payments and catalogue deletions.
package audit

import (
	"net"
	"net/http"
	"time"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Entry is one audited action.
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	AccountID    string            `json:"account_id"`
	God          bool              `json:"god,omitempty"`
	FeisID       string            `json:"feis_id,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address"`
	Status       string            `json:"status"` // "success" or "failure"
	HTTPStatus   int               `json:"http_status,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	event := l.logger.Info()
	if entry.Status != "success" {
		event = l.logger.Warn()
	}
	event.Interface("audit", entry).Msg(entry.Action)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Record wraps a state-changing route. The entry is written after the
// handler returns; 4xx and 5xx answers are recorded as failures. idParam
// names the path value holding the resource id and may be empty.
func (l *Logger) Record(action, resourceType, idParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			caller := middleware.CallerFrom(r.Context())
			entry := Entry{
				Action:       action,
				AccountID:    caller.AccountID,
				God:          caller.God,
				FeisID:       r.PathValue("fid"),
				ResourceType: resourceType,
				IPAddress:    remoteIP(r),
				Status:       "success",
				HTTPStatus:   rec.status,
			}
			if idParam != "" {
				entry.ResourceID = r.PathValue(idParam)
			}
			if rec.status >= http.StatusBadRequest {
				entry.Status = "failure"
			}
			l.Log(entry)
		})
	}
}

func remoteIP(r *http.Request) string {
	if ip := middleware.ClientIP(r.Context()); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
