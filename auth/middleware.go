package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// BearerToken extrai o token de "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware coloca a identidade no contexto quando o token é válido.
func Middleware(resolver Resolver, log *zap.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" || resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := resolver.Resolve(token)
			if err != nil {
				log.Debug("ignoring invalid bearer token", zap.String("path", r.URL.Path), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
