// Package monitoring é a borda externa do pipeline HTTP: gera o request id,
// mede o tempo do handler, registra métricas, avalia as fitness functions e
// converte panics em 500.
//
// O corpo da resposta é bufferizado para que X-Request-ID, X-Response-Time e
// X-Fitness-Status possam ser escritos depois que o handler terminou.
package monitoring
