// Package auth resolve a identidade do chamador a partir do bearer token.
// Uma credencial inválida nunca bloqueia a requisição aqui: ela apenas não
// gera identidade, e a requisição segue como anônima.
package auth

import (
	"context"
	"errors"
	"strconv"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Identity struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// ClientKey é a chave de rate limit de um usuário autenticado.
func (i Identity) ClientKey() string {
	return "user:" + strconv.FormatUint(uint64(i.UserID), 10)
}

// Resolver valida uma credencial e devolve a identidade correspondente.
type Resolver interface {
	Resolve(credential string) (Identity, error)
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
