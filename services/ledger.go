package services

import (
	"context"
	"fmt"
	"petii/db"
)

// toggleRow inserts row. When the insert hits the table's unique index the pair already
// exists, so the matching rows are deleted instead. Only one of two concurrent callers
// can win the insert; the other deterministically takes the delete path.
func toggleRow[T any](ctx context.Context, row *T, where string, args ...any) (ledgerOutcome, error) {
	err := db.GetWriteDB(ctx).Create(row).Error
	if err == nil {
		return ledgerLiked, nil
	}
	if !db.IsDuplicateKey(err) {
		return ledgerNoop, fmt.Errorf("insert: %w", err)
	}

	res := db.GetWriteDB(ctx).Where(where, args...).Delete(new(T))
	if res.Error != nil {
		return ledgerNoop, fmt.Errorf("delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ledgerNoop, nil
	}
	return ledgerUnliked, nil
}
