// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: contador de janela fixa por (chave, tier, janela), padrão
//   - TokenBucketStore: alternativa token-bucket usando golang.org/x/time/rate
//   - SemaphorePool: limite de requisições em voo (golang.org/x/sync/semaphore)
//   - MemoryStatsStore / RedisStatsStore: estatísticas best-effort das decisões
package infra
