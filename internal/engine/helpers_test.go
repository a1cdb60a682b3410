package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"seedvigil/internal/clientapi"
	"seedvigil/internal/domain"
	"seedvigil/internal/notify"
	"seedvigil/internal/sites"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeClient is an in-memory stand-in for the download client.
type fakeClient struct {
	mu       sync.Mutex
	torrents []clientapi.Torrent
	added    []string // "hash:tag"
	removed  []string
	failTags bool
}

func (c *fakeClient) Torrents(ctx context.Context) ([]clientapi.Torrent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]clientapi.Torrent, len(c.torrents))
	copy(out, c.torrents)
	return out, nil
}

func (c *fakeClient) AddTag(ctx context.Context, hash, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failTags {
		return fmt.Errorf("client unreachable")
	}
	c.added = append(c.added, hash+":"+tag)
	return nil
}

func (c *fakeClient) RemoveTag(ctx context.Context, hash, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failTags {
		return fmt.Errorf("client unreachable")
	}
	c.removed = append(c.removed, hash+":"+tag)
	return nil
}

// memRepo is an in-memory bucket store.
type memRepo struct {
	mu      sync.Mutex
	buckets map[string][]byte
}

func newMemRepo() *memRepo {
	return &memRepo{buckets: make(map[string][]byte)}
}

func (r *memRepo) Init(ctx context.Context) error { return nil }

func (r *memRepo) Load(ctx context.Context, bucket string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buckets[bucket], nil
}

func (r *memRepo) Save(ctx context.Context, bucket string, document []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[bucket] = document
	return nil
}

func (r *memRepo) Buckets(ctx context.Context) (map[string][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]byte, len(r.buckets))
	for k, v := range r.buckets {
		out[k] = v
	}
	return out, nil
}

// recordingNotifier captures dispatched alerts.
type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) Send(title, body string, severity notify.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

func testConfig() Config {
	return Config{
		Enabled:            true,
		DownloaderName:     "qbit-main",
		Tag:                "H&R",
		HRDuration:         120,
		HRRatio:            1.0,
		HRDeadlineDays:     14,
		AdditionalSeedTime: 24,
		RetentionDays:      7,
		CheckPeriod:        5 * time.Minute,
		Sites:              []string{"site-a"},
	}
}

func testRegistry() *sites.Registry {
	return sites.NewRegistry([]domain.Site{
		{ID: "site-a", Name: "Site A", TrackerHosts: []string{"tracker.site-a.example"}},
		{ID: "site-b", Name: "Site B", TrackerHosts: []string{"tracker.site-b.example"}},
		{ID: "site-pub", Name: "Public Site", Public: true},
	})
}

func newTestReconciler(cfg Config, client *fakeClient, repo *memRepo, notifier *recordingNotifier) *Reconciler {
	return NewReconciler(cfg, repo, client, testRegistry(), notifier, testLogger())
}

const testHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
