package engine

import (
	"testing"
	"time"

	"seedvigil/internal/clientapi"
	"seedvigil/internal/domain"
)

const (
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccc"
)

func newTestSynchronizer(cfg Config, at time.Time) *TagSynchronizer {
	evaluator := newTestEvaluator(cfg, nil, at)
	s := NewTagSynchronizer(cfg.Tag, evaluator, testRegistry(), testLogger())
	s.now = func() time.Time { return at }
	return s
}

func TestSyncJoinsTaggedUntracked(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSynchronizer(testConfig(), t0)

	t.Run("from history record", func(t *testing.T) {
		tasks := map[string]*domain.TorrentTask{}
		histories := map[string]*domain.TorrentHistory{
			testHash: {
				Hash:      testHash,
				Site:      "site-a",
				SiteName:  "Site A",
				Title:     "known torrent",
				Size:      1 << 30,
				Origin:    domain.OriginSubscription,
				CreatedAt: t0.Unix() - 3600,
			},
		}
		snapshot := map[string]clientapi.Torrent{
			testHash: {Hash: testHash, Name: "known torrent", Tags: []string{"H&R"}},
		}

		result := s.Sync(tasks, histories, snapshot)
		if len(result.Added) != 1 {
			t.Fatalf("added = %d, want 1", len(result.Added))
		}
		task := tasks[testHash]
		if task == nil {
			t.Fatal("task not tracked")
		}
		if task.SiteName != "Site A" || task.Origin != domain.OriginSubscription {
			t.Errorf("history descriptor not used: %+v", task)
		}
		if !task.HitAndRun || task.Status != domain.StatusInProgress {
			t.Errorf("tag must imply an obligation, got hnr=%v status=%s", task.HitAndRun, task.Status)
		}
		if task.CreatedAt != t0.Unix()-3600 {
			t.Errorf("created_at = %d, want original %d", task.CreatedAt, t0.Unix()-3600)
		}
	})

	t.Run("from live metadata and tracker lookup", func(t *testing.T) {
		tasks := map[string]*domain.TorrentTask{}
		snapshot := map[string]clientapi.Torrent{
			hashB: {
				Hash:        hashB,
				Name:        "unknown torrent",
				Size:        42,
				Tags:        []string{"other", "H&R"},
				AddedOn:     t0.Unix() - 600,
				TrackerHost: "tracker.site-b.example",
			},
		}

		result := s.Sync(tasks, nil, snapshot)
		if len(result.Added) != 1 {
			t.Fatalf("added = %d, want 1", len(result.Added))
		}
		task := tasks[hashB]
		if task.Site != "site-b" || task.SiteName != "Site B" {
			t.Errorf("tracker lookup failed: %+v", task)
		}
		if task.Origin != domain.OriginNormal {
			t.Errorf("origin = %s, want normal", task.Origin)
		}
		if task.CreatedAt != t0.Unix()-600 {
			t.Errorf("created_at = %d, want added_on", task.CreatedAt)
		}
	})

	t.Run("no site match is skipped", func(t *testing.T) {
		tasks := map[string]*domain.TorrentTask{}
		snapshot := map[string]clientapi.Torrent{
			hashC: {Hash: hashC, Name: "stray", Tags: []string{"H&R"}, TrackerHost: "unknown.example"},
		}
		result := s.Sync(tasks, nil, snapshot)
		if len(result.Added) != 0 || len(tasks) != 0 {
			t.Errorf("stray torrent must not join: added=%d tracked=%d", len(result.Added), len(tasks))
		}
	})
}

func TestSyncRemovesUntagged(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSynchronizer(testConfig(), t0)

	tasks := map[string]*domain.TorrentTask{
		testHash: {Hash: testHash, Status: domain.StatusInProgress, HitAndRun: true},
		hashB:    {Hash: hashB, Status: domain.StatusCompliant, HitAndRun: true},
	}
	snapshot := map[string]clientapi.Torrent{
		testHash: {Hash: testHash},
		hashB:    {Hash: hashB},
	}

	result := s.Sync(tasks, nil, snapshot)
	if len(result.Removed) != 1 || result.Removed[0].Hash != testHash {
		t.Fatalf("removed = %+v, want only %s", result.Removed, testHash)
	}
	if _, tracked := tasks[testHash]; tracked {
		t.Error("untagged in-progress task still tracked")
	}
	if _, tracked := tasks[hashB]; !tracked {
		t.Error("compliant task must survive tag removal")
	}
}

func TestSyncRevivesDeleted(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSynchronizer(testConfig(), t0)

	tasks := map[string]*domain.TorrentTask{
		testHash: {
			Hash:        testHash,
			Status:      domain.StatusInProgress,
			HitAndRun:   true,
			Deleted:     true,
			DeletedTime: t0.Unix() - 3600,
		},
	}
	snapshot := map[string]clientapi.Torrent{
		testHash: {Hash: testHash, Tags: []string{"H&R"}},
	}

	result := s.Sync(tasks, nil, snapshot)
	if len(result.Revived) != 1 {
		t.Fatalf("revived = %d, want 1", len(result.Revived))
	}
	task := tasks[testHash]
	if task.Deleted || task.DeletedTime != 0 {
		t.Errorf("deleted mark not cleared: deleted=%v time=%d", task.Deleted, task.DeletedTime)
	}
	if len(tasks) != 1 {
		t.Errorf("revival must not duplicate the task, tracked=%d", len(tasks))
	}
}

func TestSyncIdempotent(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSynchronizer(testConfig(), t0)

	tasks := map[string]*domain.TorrentTask{}
	snapshot := map[string]clientapi.Torrent{
		hashB: {Hash: hashB, Name: "t", Tags: []string{"H&R"}, TrackerHost: "tracker.site-a.example"},
	}

	first := s.Sync(tasks, nil, snapshot)
	if len(first.Added) != 1 {
		t.Fatalf("first pass added = %d, want 1", len(first.Added))
	}
	second := s.Sync(tasks, nil, snapshot)
	if !second.Empty() {
		t.Errorf("second pass against unchanged snapshot must be empty: %+v", second)
	}
}

func TestMarkMissing(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSynchronizer(testConfig(), t0)

	tasks := map[string]*domain.TorrentTask{
		testHash: {Hash: testHash, Status: domain.StatusInProgress},
		hashB:    {Hash: hashB, Status: domain.StatusInProgress},
		hashC:    {Hash: hashC, Status: domain.StatusInProgress, Deleted: true, DeletedTime: 100},
	}
	snapshot := map[string]clientapi.Torrent{
		testHash: {Hash: testHash},
	}

	marked := s.MarkMissing(tasks, snapshot)
	if len(marked) != 1 || marked[0].Hash != hashB {
		t.Fatalf("marked = %+v, want only %s", marked, hashB)
	}
	if !tasks[hashB].Deleted || tasks[hashB].DeletedTime != t0.Unix() {
		t.Errorf("missing task not marked: %+v", tasks[hashB])
	}
	if tasks[hashC].DeletedTime != 100 {
		t.Error("already deleted task must keep its original deleted-time")
	}
	if tasks[testHash].Deleted {
		t.Error("present task wrongly marked deleted")
	}
}
