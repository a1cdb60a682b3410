package repository

import "context"

// StateRepository persists opaque whole-document state keyed by logical bucket
// name. No partial-update semantics: callers load a bucket, mutate in memory,
// and write the whole document back.
type StateRepository interface {
	Init(ctx context.Context) error
	Load(ctx context.Context, bucket string) ([]byte, error)
	Save(ctx context.Context, bucket string, document []byte) error
	Buckets(ctx context.Context) (map[string][]byte, error)
}

// Well-known bucket names.
const (
	BucketTorrents  = "torrents"
	BucketDownloads = "downloads"
	BucketArchived  = "archived"
	BucketStatistic = "statistic"
)
