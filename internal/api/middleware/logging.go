package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. Requests on a
// conversation route carry the conversation id.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				var ev *zerolog.Event
				switch {
				case status >= http.StatusInternalServerError:
					ev = logger.Error()
				case status >= http.StatusBadRequest:
					ev = logger.Warn()
				default:
					ev = logger.Info()
				}
				if id := chi.URLParam(r, "id"); id != "" {
					ev = ev.Str("conversation", id)
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", RealIP(r)).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
