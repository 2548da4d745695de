package services

import (
	"context"
	"fmt"
	"log/slog"
	"petii/db"
	"petii/models"
	"slices"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const sweepLockKey = "like_recount_sweep_lock"

// Reconciler пересчитывает likeCount и likerSample поста по леджеру.
type Reconciler struct {
	redis *redis.Client
}

// NewReconciler takes an optional Redis client used to serialize sweeps across instances.
func NewReconciler(client *redis.Client) *Reconciler {
	return &Reconciler{redis: client}
}

// Recount rewrites the post's counter fields from the ledger. It reports whether
// anything had drifted. The write is conditional on sample_version, so a toggle
// that lands in between forces another pass instead of being overwritten.
func (r *Reconciler) Recount(ctx context.Context, postID int64) (bool, error) {
	for attempt := 0; attempt < counterRetries; attempt++ {
		post, err := loadCounterState(ctx, postID)
		if err != nil {
			return false, err
		}

		var count int64
		if err := db.GetWriteDB(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return false, fmt.Errorf("count likes: %w", err)
		}
		sample := make([]int64, 0, models.LikerSampleSize)
		err = db.GetWriteDB(ctx).Model(&models.Like{}).
			Where("post_id = ?", postID).
			Order("created_at DESC").Order("id DESC").
			Limit(models.LikerSampleSize).
			Pluck("user_id", &sample).Error
		if err != nil {
			return false, fmt.Errorf("load recent likers: %w", err)
		}

		if count == post.LikeCount && slices.Equal(sample, []int64(post.LikerSample)) {
			likeRecountsTotal.WithLabelValues("clean").Inc()
			return false, nil
		}

		res := db.GetWriteDB(ctx).Model(&models.Post{}).
			Where("id = ? AND sample_version = ?", postID, post.SampleVersion).
			Updates(map[string]interface{}{
				"like_count":     count,
				"liker_sample":   datatypes.JSONSlice[int64](sample),
				"sample_version": gorm.Expr("sample_version + 1"),
			})
		if res.Error != nil {
			return false, fmt.Errorf("update post counter: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			likeRecountsTotal.WithLabelValues("fixed").Inc()
			slog.Info("like counter reconciled", "post_id", postID, "was", post.LikeCount, "now", count)
			return true, nil
		}
	}
	likeRecountsTotal.WithLabelValues("error").Inc()
	return false, errCounterContention
}

// Sweep recounts every post in id order, batchSize posts per query. Returns the number fixed.
func (r *Reconciler) Sweep(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	fixed := 0
	var lastID int64
	for {
		var ids []int64
		err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return fixed, fmt.Errorf("load post ids: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return fixed, err
			}
			changed, err := r.Recount(ctx, id)
			if err != nil {
				// пост могли удалить между выборкой и пересчётом
				slog.Warn("recount failed during sweep", "post_id", id, "error", err)
				continue
			}
			if changed {
				fixed++
			}
		}
		if len(ids) < batchSize {
			return fixed, nil
		}
		lastID = ids[len(ids)-1]
	}
}

// StartSweeper runs Sweep every interval until ctx is done. With Redis, only the
// instance holding the lock sweeps.
func (r *Reconciler) StartSweeper(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweepOnce(ctx, interval, batchSize)
			}
		}
	}()
}

func (r *Reconciler) sweepOnce(ctx context.Context, interval time.Duration, batchSize int) {
	if r.redis != nil {
		ok, err := r.redis.SetNX(ctx, sweepLockKey, time.Now().Unix(), interval).Result()
		if err != nil {
			slog.Error("failed to take sweep lock", "error", err)
			return
		}
		if !ok {
			return
		}
	}

	start := time.Now()
	fixed, err := r.Sweep(ctx, batchSize)
	if err != nil {
		slog.Error("like recount sweep failed", "fixed", fixed, "error", err)
		return
	}
	slog.Info("like recount sweep finished", "fixed", fixed, "took", time.Since(start))
}
