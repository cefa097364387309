package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dt-pm-tools/kbagent/internal/state"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

// RunStatic processes records once, in order. Per-ticket failures are
// logged. Cancellation stops the run between tickets.
func (a *Agent) RunStatic(ctx context.Context, records []*ticket.Record) error {
	a.logger.Info("running in static mode", zap.Int("tickets", len(records)))

	for _, r := range records {
		if ctx.Err() != nil {
			a.logger.Info("interrupted, stopping")
			return nil
		}
		text, err := a.ProcessTicket(context.WithoutCancel(ctx), r, r.Key, nil)
		if err != nil {
			a.logger.Error("processing ticket failed", zap.String("ticket", r.Key), zap.Error(err))
			continue
		}
		a.logger.Info("ticket processed", zap.String("ticket", r.Key), zap.String("analysis", text))
	}
	return nil
}

// RunLive polls for resolved tickets until ctx is cancelled. An iteration
// that fails is logged and the loop carries on after the usual sleep.
func (a *Agent) RunLive(ctx context.Context) error {
	if a.source == nil {
		return errors.New("live mode requires a ticket source")
	}
	a.logger.Info("running in live mode",
		zap.String("project", a.project),
		zap.Duration("interval", a.interval),
		zap.Duration("lookback", a.lookback),
		zap.Bool("testing_mode", a.testingMode),
	)

	for {
		log := a.logger.With(zap.String("cycle", uuid.NewString()))
		if err := a.pollOnce(ctx, log); err != nil {
			if ctx.Err() != nil {
				a.logger.Info("interrupted, stopping")
				return nil
			}
			log.Error("poll iteration failed", zap.Error(err))
		}

		if err := sleep(ctx, a.interval); err != nil {
			a.logger.Info("interrupted, stopping")
			return nil
		}
	}
}

func (a *Agent) pollOnce(ctx context.Context, log *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	issues, err := a.source.SearchResolved(ctx, a.project, a.lookback)
	if err != nil {
		return fmt.Errorf("searching resolved tickets: %w", err)
	}
	log.Debug("resolved tickets found", zap.Int("count", len(issues)))

	for _, is := range issues {
		if ctx.Err() != nil {
			return nil
		}
		tlog := log.With(zap.String("ticket", is.Key))

		if !a.testingMode {
			k := state.Key{Ticket: is.Key, ResolvedAt: is.ResolutionDate}
			seen, err := a.store.Seen(ctx, k)
			if err != nil {
				tlog.Error("checking processed tickets", zap.Error(err))
				continue
			}
			if seen {
				tlog.Debug("already processed, skipping")
				continue
			}
			if err := a.store.Mark(ctx, k); err != nil {
				tlog.Error("marking ticket processed", zap.Error(err))
			}
		}

		work := context.WithoutCancel(ctx)
		rec, err := a.source.FetchFull(work, is.Key)
		if err != nil {
			tlog.Error("fetching ticket failed", zap.Error(err))
			continue
		}
		if _, err := a.ProcessTicket(work, rec, is.Key, nil); err != nil {
			tlog.Error("processing ticket failed", zap.Error(err))
			continue
		}
		tlog.Info("ticket processed")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
