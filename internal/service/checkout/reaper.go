package checkout

import (
	"context"
	"log"
	"time"
)

// Reaper reclaims expired carts in the background. Expiry is silent:
// open-cart queries already exclude expired rows, so reclamation lag is
// invisible to shoppers.
type Reaper struct {
	carts    expiredCartDeleter
	interval time.Duration
	logger   *log.Logger
}

type expiredCartDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func NewReaper(carts expiredCartDeleter, interval time.Duration, logger *log.Logger) *Reaper {
	return &Reaper{carts: carts, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, deleting expired carts every interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.carts.DeleteExpired(ctx)
			if err != nil {
				r.logger.Printf("reap expired carts: %v", err)
				continue
			}
			if n > 0 {
				r.logger.Printf("reaped %d expired carts", n)
			}
		}
	}
}
