package store

import (
	"context"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"go.uber.org/zap"
)

// Recorder persists results off the caller's goroutine. Rooms hand results
// over with Submit and never wait on the database.
type Recorder struct {
	repo   Repository
	queue  chan types.GameResult
	logger *zap.Logger
}

func NewRecorder(repo Repository, buffer int, logger *zap.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		queue:  make(chan types.GameResult, buffer),
		logger: logger.Named("recorder"),
	}
}

// Submit queues result, dropping it if the queue is full.
func (r *Recorder) Submit(result types.GameResult) {
	select {
	case r.queue <- result:
	default:
		r.logger.Warn("result queue full, dropping", zap.String("room", result.Code))
	}
}

// Run saves queued results until ctx is done, then drains what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case res := <-r.queue:
			r.save(ctx, res)
		case <-ctx.Done():
			r.drain()
			return nil
		}
	}
}

func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case res := <-r.queue:
			r.save(ctx, res)
		default:
			return
		}
	}
}

func (r *Recorder) save(ctx context.Context, res types.GameResult) {
	if err := r.repo.Save(ctx, res); err != nil {
		r.logger.Error("save result", zap.String("room", res.Code), zap.Error(err))
		return
	}
	r.logger.Debug("result saved", zap.String("room", res.Code))
}
