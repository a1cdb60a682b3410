package backup

import (
	"context"
	"time"
)

// SnapshotInfo describes one stored state snapshot.
type SnapshotInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service mirrors persisted engine state to remote object storage so a lost
// local database can be reconstructed.
type Service interface {
	UploadSnapshot(ctx context.Context, buckets map[string][]byte) (string, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
	Prune(ctx context.Context, keepFor time.Duration) (int, error)
}
