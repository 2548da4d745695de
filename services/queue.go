package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	LIKE_RECOUNT_QUEUE = "like_recount_queue"
	recountPopTimeout  = 5 * time.Second
	recountLocalBudget = 30 * time.Second
	recountGaugePeriod = 15 * time.Second
)

// RecountQueueService доставляет id постов с расхождением счётчика до Reconciler.
// Без Redis пересчёт запускается в отдельной горутине сразу.
type RecountQueueService struct {
	redis      *redis.Client
	reconciler *Reconciler
}

func NewRecountQueueService(client *redis.Client, reconciler *Reconciler) *RecountQueueService {
	return &RecountQueueService{redis: client, reconciler: reconciler}
}

// EnqueueRecount implements RecountQueue.
func (qs *RecountQueueService) EnqueueRecount(ctx context.Context, postID int64) error {
	if qs.redis == nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), recountLocalBudget)
			defer cancel()
			if _, err := qs.reconciler.Recount(ctx, postID); err != nil {
				slog.Error("local recount failed", "post_id", postID, "error", err)
			}
		}()
		return nil
	}

	if err := qs.redis.RPush(ctx, LIKE_RECOUNT_QUEUE, postID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue recount: %w", err)
	}
	return nil
}

// StartWorkers запускает воркеры, разбирающие очередь пересчёта.
func (qs *RecountQueueService) StartWorkers(ctx context.Context, count int) {
	if qs.redis == nil {
		return
	}
	for i := 0; i < count; i++ {
		go qs.worker(ctx, i)
	}
	go qs.reportPending(ctx, recountGaugePeriod)
}

// reportPending публикует длину очереди в метрику, пока жив ctx.
func (qs *RecountQueueService) reportPending(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		qs.samplePending(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (qs *RecountQueueService) samplePending(ctx context.Context) {
	n, err := qs.Pending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("failed to read recount queue length", "error", err)
		}
		return
	}
	likeRecountQueueLength.Set(float64(n))
}

func (qs *RecountQueueService) worker(ctx context.Context, workerID int) {
	slog.Info("recount worker started", "worker", workerID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("recount worker stopping", "worker", workerID)
			return
		default:
		}

		result, err := qs.redis.BLPop(ctx, recountPopTimeout, LIKE_RECOUNT_QUEUE).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			slog.Error("recount worker pop failed", "worker", workerID, "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		postID, err := strconv.ParseInt(result[1], 10, 64)
		if err != nil {
			slog.Warn("bad recount task", "worker", workerID, "payload", result[1])
			continue
		}
		if _, err := qs.reconciler.Recount(ctx, postID); err != nil {
			slog.Error("recount failed", "worker", workerID, "post_id", postID, "error", err)
		}
	}
}

// Pending returns the queue length.
func (qs *RecountQueueService) Pending(ctx context.Context) (int64, error) {
	if qs.redis == nil {
		return 0, nil
	}
	return qs.redis.LLen(ctx, LIKE_RECOUNT_QUEUE).Result()
}
