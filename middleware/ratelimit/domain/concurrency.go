package domain

import "context"

// SlotPool limita o número de requisições em voo.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// O release retornado deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
