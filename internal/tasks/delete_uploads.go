package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// DeleteUploadFilesTask removes stored images that no recipe or profile
// references any more.
type DeleteUploadFilesTask struct {
	URLs []string `json:"urls"`
}

// Config returns the queue configuration for upload deletion tasks.
func (t DeleteUploadFilesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "delete_upload_files",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DeleteUploadFilesProcessor creates a processor function for DeleteUploadFilesTask.
func DeleteUploadFilesProcessor(storage uploads.Storage) backlite.QueueProcessor[DeleteUploadFilesTask] {
	log := logger.Component("tasks")
	return func(ctx context.Context, task DeleteUploadFilesTask) error {
		if storage == nil {
			return fmt.Errorf("upload storage not configured")
		}
		if err := uploads.DeleteAll(ctx, storage, task.URLs); err != nil {
			return fmt.Errorf("delete upload files: %w", err)
		}
		log.Debug().Int("files", len(task.URLs)).Msg("deleted upload files")
		return nil
	}
}

// NewDeleteUploadFilesQueue creates a backlite queue for upload deletion tasks.
func NewDeleteUploadFilesQueue(storage uploads.Storage) backlite.Queue {
	return backlite.NewQueue(DeleteUploadFilesProcessor(storage))
}

// UploadRemover defers file deletion to the task queue so request handlers
// return without waiting on the storage backend.
type UploadRemover struct {
	client *Client
}

func NewUploadRemover(client *Client) *UploadRemover {
	return &UploadRemover{client: client}
}

// RemoveFiles enqueues a DeleteUploadFilesTask for urls.
func (r *UploadRemover) RemoveFiles(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	if _, err := r.client.Add(DeleteUploadFilesTask{URLs: urls}).Save(); err != nil {
		return fmt.Errorf("enqueue upload deletion: %w", err)
	}
	return nil
}
