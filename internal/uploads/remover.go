package uploads

import (
	"context"
	"errors"
	"fmt"
)

// SyncRemover deletes files immediately. It is used when the background
// task queue is disabled.
type SyncRemover struct {
	storage Storage
}

func NewSyncRemover(storage Storage) *SyncRemover {
	return &SyncRemover{storage: storage}
}

// RemoveFiles deletes every url, continuing past failures.
func (r *SyncRemover) RemoveFiles(ctx context.Context, urls []string) error {
	return DeleteAll(ctx, r.storage, urls)
}

// DeleteAll deletes every url from storage and joins the failures.
func DeleteAll(ctx context.Context, storage Storage, urls []string) error {
	var errs []error
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := storage.Delete(ctx, url); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", url, err))
		}
	}
	return errors.Join(errs...)
}
