// Package domain define contratos e tipos de domínio para rate limit por tier
// e limite de requisições em voo.
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
