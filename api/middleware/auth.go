package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegbarsky/tradeport-backend/api/responses"
	pkgauth "github.com/olegbarsky/tradeport-backend/pkg/auth"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxUserType, claims.UserType)
			if claims.ShopID != nil {
				ctx = context.WithValue(ctx, ctxShopID, *claims.ShopID)
			}

			if logg != nil {
				fields := map[string]any{
					"user_id":   claims.UserID,
					"user_type": string(claims.UserType),
				}
				if claims.ShopID != nil {
					fields["shop_id"] = *claims.ShopID
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePartner rejects callers that are not shop accounts.
func RequirePartner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserTypeFromContext(r.Context()) != enums.UserTypeShop {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only shop accounts may call this endpoint"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
