package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/clientip"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID reuses a sane incoming X-Request-ID or generates a uuid, and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type zerologFormatter struct {
	logger zerolog.Logger
}

type zerologEntry struct {
	log zerolog.Logger
}

func (f *zerologFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	l := f.logger.With().
		Str("request_id", RequestIDFrom(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_ip", clientip.RealClientIP(r)).
		Logger()
	return &zerologEntry{log: l}
}

func (e *zerologEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	var ev *zerolog.Event
	switch {
	case status >= 500:
		ev = e.log.Error()
	case status >= 400:
		ev = e.log.Warn()
	default:
		ev = e.log.Info()
	}
	ev.Int("status", status).Int("bytes", bytes).Dur("duration", elapsed).Msg("request completed")
}

func (e *zerologEntry) Panic(v interface{}, stack []byte) {
	e.log.Error().Interface("panic", v).Bytes("stack", stack).Msg("panic recovered")
}

// RequestLogger logs one line per request through chi's RequestLogger and
// attaches the request-scoped logger to the context for zerolog.Ctx.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	chiLogger := chimw.RequestLogger(&zerologFormatter{logger: logger})
	return func(next http.Handler) http.Handler {
		return chiLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if entry, ok := chimw.GetLogEntry(r).(*zerologEntry); ok {
				l = entry.log
			}
			next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
		}))
	}
}
