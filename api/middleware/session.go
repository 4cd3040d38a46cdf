package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/artmarket/artmarket-backend/api/responses"
	"github.com/artmarket/artmarket-backend/api/validators"
	pkgAuth "github.com/artmarket/artmarket-backend/pkg/auth"
	"github.com/artmarket/artmarket-backend/pkg/config"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

const (
	userSessionPrefix  = "user:"
	guestSessionPrefix = "guest:"
)

// CartSession resolves the cart session for the request. A bearer token wins
// and scopes the cart to the user; otherwise a guest uuid in X-Cart-Session is
// required.
func CartSession(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var sessionID, userID string

			if token, ok := validators.BearerToken(r.Header.Get("Authorization")); ok {
				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				userID = claims.UserID.String()
				sessionID = userSessionPrefix + userID
			} else {
				raw := strings.TrimSpace(r.Header.Get(SessionHeader))
				if raw == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required"))
					return
				}
				guestID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid cart session"))
					return
				}
				sessionID = guestSessionPrefix + guestID.String()
			}

			ctx = WithSessionID(ctx, sessionID)
			if userID != "" {
				ctx = WithUserID(ctx, userID)
			}
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
				if userID != "" {
					ctx = logg.WithUserID(ctx, userID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
