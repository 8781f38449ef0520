package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paperly-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que nenhuma vaga foi adquirida dentro do prazo.
var ErrNoSlot = errors.New("no in-flight slot available")

// ConcurrencyService concentra a regra de aquisição/liberação de vagas com timeout,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx da requisição encerrar.
//   - AcquireTimeout > 0: espera no máximo AcquireTimeout.
//
// Em falha retorna ErrNoSlot embrulhando a causa (context.DeadlineExceeded
// ou context.Canceled), para o chamador distinguir timeout de cliente que desistiu.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		cause := acqCtx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return nil, fmt.Errorf("%w: %w", ErrNoSlot, cause)
	}
	return release, nil
}
