package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"petii/db"
	"petii/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// counterRetries bounds compare-and-swap attempts on a post's sample_version.
const counterRetries = 8

var errCounterContention = errors.New("like counter contention")

// LikeResult is the outcome of a toggle as seen by the caller.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

// RecountQueue receives posts whose likeCount may have drifted from the ledger.
type RecountQueue interface {
	EnqueueRecount(ctx context.Context, postID int64) error
}

type ledgerOutcome int

// Outcomes of toggleRow. Likes and follows share them: "liked" is the insert branch.
const (
	// ledgerNoop: the delete branch found nothing to delete (a concurrent delete won).
	ledgerNoop ledgerOutcome = iota
	ledgerLiked
	ledgerUnliked
)

func (o ledgerOutcome) String() string {
	switch o {
	case ledgerLiked:
		return "liked"
	case ledgerUnliked:
		return "unliked"
	default:
		return "noop"
	}
}

// LikeService владеет леджером лайков и денормализованным счётчиком на посте.
//
// The ledger write and the counter update are two separate single-row operations,
// in that order, with no transaction around them. A failure between them leaves
// likeCount drifted; the post is then handed to the RecountQueue. likerSample is
// best-effort on top of that and never fails a toggle.
type LikeService struct {
	recounts RecountQueue
}

func NewLikeService(recounts RecountQueue) *LikeService {
	return &LikeService{recounts: recounts}
}

// Toggle likes the post for userID if they have not liked it yet, otherwise unlikes it.
func (ls *LikeService) Toggle(ctx context.Context, postID, userID int64) (*LikeResult, error) {
	if err := ensurePostExists(ctx, postID); err != nil {
		return nil, err
	}

	outcome, err := ls.mutateLedger(ctx, postID, userID)
	if err != nil {
		likeTogglesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	likeTogglesTotal.WithLabelValues(outcome.String()).Inc()

	if outcome == ledgerNoop {
		count, err := likeCount(ctx, postID)
		if err != nil {
			return nil, err
		}
		return &LikeResult{Liked: false, LikeCount: count}, nil
	}

	count, drifted, err := ls.applyCounter(ctx, postID, userID, outcome)
	if err != nil || drifted {
		ls.markDrift(ctx, postID)
	}
	if err != nil {
		slog.Error("like counter update failed after ledger write",
			"post_id", postID, "user_id", userID, "outcome", outcome.String(), "error", err)
		return nil, fmt.Errorf("update like counter: %w", err)
	}

	return &LikeResult{Liked: outcome == ledgerLiked, LikeCount: count}, nil
}

// markDrift hands a post whose counter fields may disagree with the ledger to the recount queue.
func (ls *LikeService) markDrift(ctx context.Context, postID int64) {
	likeCounterDriftTotal.Inc()
	if ls.recounts == nil {
		return
	}
	if err := ls.recounts.EnqueueRecount(context.WithoutCancel(ctx), postID); err != nil {
		slog.Error("failed to enqueue like recount", "post_id", postID, "error", err)
	}
}

// mutateLedger uses the (post, user) unique index as the only arbiter of like vs unlike.
func (ls *LikeService) mutateLedger(ctx context.Context, postID, userID int64) (ledgerOutcome, error) {
	outcome, err := toggleRow(ctx, &models.Like{PostID: postID, UserID: userID},
		"post_id = ? AND user_id = ?", postID, userID)
	if err != nil {
		return ledgerNoop, fmt.Errorf("toggle like: %w", err)
	}
	return outcome, nil
}

// applyCounter moves likeCount by one in a single unconditional update, then
// rewrites likerSample. Only the count step can fail the toggle; a sample that
// could not be written, or a decrement that found the count already at zero,
// comes back as drifted for the recount queue.
func (ls *LikeService) applyCounter(ctx context.Context, postID, userID int64, outcome ledgerOutcome) (int64, bool, error) {
	tx := db.GetWriteDB(ctx).Model(&models.Post{}).Where("id = ?", postID)
	countExpr := gorm.Expr("like_count + 1")
	if outcome == ledgerUnliked {
		tx = tx.Where("like_count > 0")
		countExpr = gorm.Expr("like_count - 1")
	}
	// sample_version растет и здесь: пересчет не должен затереть конкурентный инкремент
	res := tx.Updates(map[string]interface{}{
		"like_count":     countExpr,
		"sample_version": gorm.Expr("sample_version + 1"),
	})
	if res.Error != nil {
		return 0, false, fmt.Errorf("update like count: %w", res.Error)
	}
	drifted := res.RowsAffected == 0

	count, err := ls.applySample(ctx, postID, userID, outcome)
	if err != nil {
		slog.Warn("liker sample not updated", "post_id", postID, "user_id", userID, "error", err)
		drifted = true
		if count, err = likeCount(ctx, postID); err != nil {
			return 0, drifted, err
		}
	}
	return count, drifted, nil
}

// applySample rewrites likerSample under a compare-and-swap on sample_version and
// returns the like count it was computed against.
func (ls *LikeService) applySample(ctx context.Context, postID, userID int64, outcome ledgerOutcome) (int64, error) {
	for attempt := 0; attempt < counterRetries; attempt++ {
		post, err := loadCounterState(ctx, postID)
		if err != nil {
			return 0, err
		}

		sample := RemoveLiker(post.LikerSample, userID)
		if outcome == ledgerLiked {
			sample = PrependLiker(post.LikerSample, userID)
		}

		res := db.GetWriteDB(ctx).Model(&models.Post{}).
			Where("id = ? AND sample_version = ?", postID, post.SampleVersion).
			Updates(map[string]interface{}{
				"liker_sample":   datatypes.JSONSlice[int64](sample),
				"sample_version": gorm.Expr("sample_version + 1"),
			})
		if res.Error != nil {
			return 0, fmt.Errorf("update liker sample: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return post.LikeCount, nil
		}
	}
	return 0, errCounterContention
}

// PrependLiker puts userID first, drops an older entry for it and caps the sample.
func PrependLiker(sample []int64, userID int64) []int64 {
	out := make([]int64, 0, models.LikerSampleSize)
	out = append(out, userID)
	for _, id := range sample {
		if len(out) == models.LikerSampleSize {
			break
		}
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// RemoveLiker drops userID from the sample; absent ids are a no-op.
func RemoveLiker(sample []int64, userID int64) []int64 {
	out := make([]int64, 0, len(sample))
	for _, id := range sample {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

func loadCounterState(ctx context.Context, postID int64) (*models.Post, error) {
	var post models.Post
	err := db.GetWriteDB(ctx).
		Select("id", "like_count", "liker_sample", "sample_version").
		Where("id = ?", postID).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post counter: %w", err)
	}
	return &post, nil
}

func likeCount(ctx context.Context, postID int64) (int64, error) {
	post, err := loadCounterState(ctx, postID)
	if err != nil {
		return 0, err
	}
	return post.LikeCount, nil
}

func ensurePostExists(ctx context.Context, postID int64) error {
	var n int64
	if err := db.GetWriteDB(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return fmt.Errorf("find post: %w", err)
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}
