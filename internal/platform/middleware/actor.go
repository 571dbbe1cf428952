package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"eventtrail/pkg/requestcontext"
)

// actorClaims is the subset of JWT claims this service cares about. Tokens are
// optional: requests without one act as the system sentinel.
type actorClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Actor extracts an acting identity from an optional bearer token so audit
// entries can record who made a change. An invalid token is rejected outright
// rather than silently downgraded to the system actor.
func Actor(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(signingKey), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims := &actorClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "rejected invalid bearer token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"message":"invalid or expired token"}`))
				return
			}

			actor := claims.Name
			if actor == "" {
				actor = claims.Subject
			}
			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
