package service

import (
	"context"
	"time"

	"civicpay/internal/core/ports"

	"github.com/rs/zerolog"
)

// QrJanitor periodically expires pending QR requests that were never
// paid, so verify calls report them as expired instead of pending
// forever.
type QrJanitor struct {
	qrRepo   ports.QrRequestRepository
	interval time.Duration
	maxAge   time.Duration
	log      zerolog.Logger
}

// NewQrJanitor creates a QrJanitor. maxAge is how long a pending
// request may live before expiry; the sweep runs every interval.
func NewQrJanitor(qrRepo ports.QrRequestRepository, interval, maxAge time.Duration, log zerolog.Logger) *QrJanitor {
	return &QrJanitor{
		qrRepo:   qrRepo,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
	}
}

// Run sweeps until ctx is cancelled. Call it in its own goroutine.
func (j *QrJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *QrJanitor) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.maxAge)
	n, err := j.qrRepo.ExpireStale(ctx, cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("qr expiry sweep failed")
		return
	}
	if n > 0 {
		j.log.Info().Int64("expired", n).Msg("expired stale qr requests")
	}
}
