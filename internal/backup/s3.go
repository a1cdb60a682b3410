package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// ObjectStoreAPI is the slice of the S3 surface the service touches. The AWS
// client satisfies it directly.
type ObjectStoreAPI interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Service stores state snapshots in Amazon S3 (or compatible APIs), one
// JSON object per snapshot under a shared key prefix.
type S3Service struct {
	client    ObjectStoreAPI
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

func NewS3Service(client ObjectStoreAPI, bucket, keyPrefix string) *S3Service {
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

type snapshotDocument struct {
	TakenAt string                     `json:"taken_at"`
	Buckets map[string]json.RawMessage `json:"buckets"`
}

// UploadSnapshot writes all persisted buckets as a single timestamped JSON
// object and returns its s3:// location.
func (s *S3Service) UploadSnapshot(ctx context.Context, buckets map[string][]byte) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("backup bucket is required")
	}

	doc := snapshotDocument{
		TakenAt: time.Now().UTC().Format(time.RFC3339),
		Buckets: make(map[string]json.RawMessage, len(buckets)),
	}
	for name, raw := range buckets {
		if len(raw) == 0 {
			raw = []byte("null")
		}
		doc.Buckets[name] = json.RawMessage(raw)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := s.snapshotKey(time.Now().UTC())
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Service) snapshotKey(now time.Time) string {
	name := fmt.Sprintf("state-%s-%s.json", now.Format("20060102T150405Z"), uuid.NewString()[:8])
	if s.keyPrefix == "" {
		return name
	}
	return s.keyPrefix + "/" + name
}

// ListSnapshots enumerates stored snapshots, oldest first.
func (s *S3Service) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	var snapshots []SnapshotInfo

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.keyPrefix != "" {
		input.Prefix = aws.String(s.keyPrefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			snapshots = append(snapshots, SnapshotInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			})
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		li, lj := snapshots[i].LastModified, snapshots[j].LastModified
		if li == nil || lj == nil {
			return snapshots[i].Key < snapshots[j].Key
		}
		return li.Before(*lj)
	})
	return snapshots, nil
}

// Prune deletes snapshots older than keepFor and returns how many were
// removed.
func (s *S3Service) Prune(ctx context.Context, keepFor time.Duration) (int, error) {
	if keepFor <= 0 {
		return 0, nil
	}

	snapshots, err := s.ListSnapshots(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-keepFor)
	var stale []types.ObjectIdentifier
	for _, snap := range snapshots {
		if snap.LastModified != nil && snap.LastModified.Before(cutoff) {
			stale = append(stale, types.ObjectIdentifier{Key: aws.String(snap.Key)})
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	// DeleteObjects accepts at most 1000 keys per request
	deleted := 0
	for start := 0; start < len(stale); start += 1000 {
		end := start + 1000
		if end > len(stale) {
			end = len(stale)
		}
		batch := stale[start:end]
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		}); err != nil {
			return deleted, fmt.Errorf("delete stale snapshots: %w", err)
		}
		deleted += len(batch)
	}
	return deleted, nil
}

var _ Service = (*S3Service)(nil)
