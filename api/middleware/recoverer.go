package middleware

import (
	"fmt"
	"net/http"

	"github.com/artmarket/artmarket-backend/api/responses"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. The panic value rides
// along on the request.error log entry written by responses.WriteError.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "panic", fmt.Sprint(rec))
				}
				err := fmt.Errorf("panic: %v", rec)
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
