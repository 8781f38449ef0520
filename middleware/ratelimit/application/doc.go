// Package application contém os casos de uso (regras de aplicação) para rate limit
// por tier e limite de requisições em voo.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(key, tier) retorna uma Decision e, quando a cota estoura,
// um *domain.QuotaExceededError.
package application
