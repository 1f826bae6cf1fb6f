package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Recoverer перехватывает панику обработчика, логирует её со стеком и отвечает 500.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					zap.Any("panic", rvr),
					zap.String("method", r.Method),
					zap.String("uri", r.RequestURI),
					zap.Stack("stack"),
				)
				writeError(w, http.StatusInternalServerError, "Server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
