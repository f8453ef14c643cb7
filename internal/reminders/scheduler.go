package reminders

import (
	"context"
	"time"

	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Scheduler periodically places reminder calls for scheduled appointments.
type Scheduler struct {
	service   *Service
	interval  time.Duration
	batchSize int32
	logger    *logging.Logger
}

func NewScheduler(service *Service, interval time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		service:   service,
		interval:  interval,
		batchSize: 50,
		logger:    logger,
	}
}

// WithBatchSize caps how many reminders one sweep places.
func (s *Scheduler) WithBatchSize(size int32) *Scheduler {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Start runs the reminder loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s.service == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	placed, err := s.service.SendAll(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("reminder sweep had failures", "error", err, "placed", placed)
		return
	}
	if placed > 0 {
		s.logger.Info("reminder sweep complete", "placed", placed)
	}
}
