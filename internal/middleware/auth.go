package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/auth"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userKey struct{}

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// CurrentUser returns the user RequireAuth loaded, or nil.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}

// bearerToken reads "Authorization: Bearer <t>". Browsers cannot set headers
// on a websocket upgrade, so ?token= is accepted there as well.
func bearerToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

// RequireAuth validates the local JWT and loads its user.
func RequireAuth(tokens TokenParser, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeJSONError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeJSONError(w, http.StatusUnauthorized, "Token expired.")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "Invalid token.")
				return
			}

			id, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid token.")
				return
			}
			user, err := users.GetByID(r.Context(), id)
			if err != nil && !errors.Is(err, services.ErrNotFound) {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("auth: load user")
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid token. User not found.")
				return
			}

			ctx := WithUser(r.Context(), user)
			l := zerolog.Ctx(ctx).With().Str("user_id", user.ID.Hex()).Logger()
			ctx = l.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
