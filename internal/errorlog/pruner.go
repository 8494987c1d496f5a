package errorlog

import (
	"context"
	"log/slog"
	"time"
)

// Pruner periodically deletes error logs older than the retention window.
// It prunes once on Start and then on every interval tick until Stop.
type Pruner struct {
	store     PruneStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PruneStore interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewPruner(store PruneStore, retention, interval time.Duration, logger *slog.Logger) *Pruner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("error log pruner disabled", "retention", p.retention)
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("error log pruner started", "retention", p.retention, "interval", p.interval)
}

// Stop signals the loop to exit and waits for it. It is a no-op when the
// loop never ran.
func (p *Pruner) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

func (p *Pruner) PruneOnce(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("error log prune failed", "error", err)
		return 0
	}
	if deleted > 0 {
		p.logger.Info("error logs pruned", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted
}
