package videogen

import (
	"context"
	"fmt"
	"time"

	"ashserver/internal/domain"
	"ashserver/internal/infra"
)

// Poller runs a render job to completion by polling its backend at the
// backend's own cadence. A job that neither finishes nor fails within the
// budget ends with domain.ErrTimedOut; the upstream job is abandoned, not
// cancelled, because neither renderer exposes a cancel endpoint.
type Poller struct {
	budget time.Duration
	logger *infra.Logger

	// sleep is swapped out in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller constructs a poller with the given total time budget per job.
func NewPoller(budget time.Duration, logger *infra.Logger) *Poller {
	return &Poller{budget: budget, logger: logger, sleep: sleepContext}
}

// Run submits the story and polls until a terminal outcome. It returns the
// rendered video bytes on success.
func (p *Poller) Run(ctx context.Context, backend Backend, story string) ([]byte, error) {
	jobID, err := backend.Submit(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	p.logger.Info().
		Str("pipeline", backend.Label()).
		Str("job_id", jobID).
		Msg("videogen: job submitted")

	deadline := time.Now().Add(p.budget)
	for {
		outcome, err := backend.Poll(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
		}
		switch outcome.State {
		case StateDone:
			p.logger.Info().
				Str("pipeline", backend.Label()).
				Str("job_id", jobID).
				Int("bytes", len(outcome.Video)).
				Msg("videogen: job finished")
			return outcome.Video, nil
		case StateFailed:
			p.logger.Warn().
				Str("pipeline", backend.Label()).
				Str("job_id", jobID).
				Str("reason", outcome.Reason).
				Msg("videogen: job failed")
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderFailure, outcome.Reason)
		}

		if p.budget > 0 && time.Until(deadline) < backend.PollInterval() {
			p.logger.Warn().
				Str("pipeline", backend.Label()).
				Str("job_id", jobID).
				Dur("budget", p.budget).
				Msg("videogen: poll budget exhausted")
			return nil, domain.ErrTimedOut
		}
		if err := p.sleep(ctx, backend.PollInterval()); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
