package watchdog

import (
	"context"
	"log"
	"time"
)

const watchInterval = 10 * time.Minute

// Pruner deletes dispatch attempts older than cutoff.
type Pruner interface {
	PruneAttempts(ctx context.Context, cutoff time.Time) (int64, error)
}

// Watchdog keeps the dispatch history bounded in time.
type Watchdog struct {
	db        Pruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func New(db Pruner, retention time.Duration) *Watchdog {
	return &Watchdog{
		db:        db,
		retention: retention,
		interval:  watchInterval,
		now:       time.Now,
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Watchdog stopped")
			return
		case <-ticker.C:
			w.prune(ctx)
		}
	}
}

func (w *Watchdog) prune(ctx context.Context) {
	removed, err := w.db.PruneAttempts(ctx, w.now().Add(-w.retention))
	if err != nil {
		log.Printf("Watchdog: failed to prune history: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Watchdog: pruned %d dispatch attempts", removed)
	}
}
