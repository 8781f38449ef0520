// Package ratelimit fornece adapters HTTP (net/http) para rate limit por tier
// e limite de requisições em voo.
//
// Visão geral (camadas):
//
//   - domain: tiers, cotas, decisão e contratos (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, token bucket, semáforo, stats)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave/tier + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (usuário autenticado, header, XFF ou IP) e o tier
//  2. Chama a camada application para contabilizar e decidir
//  3. Escreve X-RateLimit-Limit/Remaining/Reset/Tier
//  4. Se bloqueado, responde 429 com tier e cota no corpo; se permitido, chama o próximo handler
package ratelimit
