package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"seedvigil/internal/clientapi"
	"seedvigil/internal/domain"
	"seedvigil/internal/sites"
)

// SyncResult summarizes the three disjoint diffs of one tag reconciliation
// pass. Re-running against an unchanged snapshot yields an empty result.
type SyncResult struct {
	Added   []*domain.TorrentTask
	Removed []*domain.TorrentTask
	Revived []*domain.TorrentTask
}

func (r SyncResult) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Revived) == 0
}

// TagSynchronizer reconciles store membership against the client's live
// torrent/tag snapshot. The management tag is the mechanism by which
// externally added or removed management intent is detected.
type TagSynchronizer struct {
	tag       string
	evaluator *Evaluator
	registry  *sites.Registry
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTagSynchronizer(tag string, evaluator *Evaluator, registry *sites.Registry, logger *logrus.Logger) *TagSynchronizer {
	return &TagSynchronizer{
		tag:       tag,
		evaluator: evaluator,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// Sync walks the full client snapshot once and mutates tasks in place:
// tagged-but-untracked torrents join, untagged-but-tracked entries leave
// (terminal compliant entries are protected), and tracked tagged entries
// marked deleted are revived.
func (s *TagSynchronizer) Sync(
	tasks map[string]*domain.TorrentTask,
	histories map[string]*domain.TorrentHistory,
	snapshot map[string]clientapi.Torrent,
) SyncResult {
	var result SyncResult

	for hash, torrent := range snapshot {
		tagged := torrent.HasTag(s.tag)
		task, tracked := tasks[hash]

		switch {
		case tagged && !tracked:
			created := s.buildTask(torrent, histories)
			if created == nil {
				continue
			}
			tasks[hash] = created
			result.Added = append(result.Added, created)
			s.logger.WithFields(logrus.Fields{
				"site":    created.SiteName,
				"torrent": created.Identifier(),
			}).Info("tagged torrent joined obligation management")

		case tagged && tracked && task.Deleted:
			task.Deleted = false
			task.DeletedTime = 0
			result.Revived = append(result.Revived, task)
			s.logger.WithFields(logrus.Fields{
				"site":    task.SiteName,
				"torrent": task.Identifier(),
			}).Info("torrent reappeared in client, cleared deleted mark")

		case !tagged && tracked:
			if task.Status == domain.StatusCompliant {
				continue
			}
			delete(tasks, hash)
			result.Removed = append(result.Removed, task)
			s.logger.WithFields(logrus.Fields{
				"site":    task.SiteName,
				"torrent": task.Identifier(),
			}).Info("tag removed externally, left obligation management")
		}
	}

	return result
}

// MarkMissing flags tracked hashes absent from the full client snapshot as
// deleted, independent of tag state. Returns the newly marked tasks.
func (s *TagSynchronizer) MarkMissing(
	tasks map[string]*domain.TorrentTask,
	snapshot map[string]clientapi.Torrent,
) []*domain.TorrentTask {
	var marked []*domain.TorrentTask
	for hash, task := range tasks {
		if _, present := snapshot[hash]; present || task.Deleted {
			continue
		}
		task.Deleted = true
		task.DeletedTime = s.now().Unix()
		marked = append(marked, task)
		s.logger.WithFields(logrus.Fields{
			"site":    task.SiteName,
			"torrent": task.Identifier(),
		}).Info("torrent missing from client, marked deleted")
	}
	return marked
}

// buildTask reconstitutes a task for an externally tagged torrent: from the
// recorded ingestion event when the history window still has it, otherwise
// from the live torrent metadata plus a tracker-host site lookup.
func (s *TagSynchronizer) buildTask(torrent clientapi.Torrent, histories map[string]*domain.TorrentHistory) *domain.TorrentTask {
	var task *domain.TorrentTask
	if history, ok := histories[torrent.Hash]; ok {
		task = history.Task()
	} else {
		site, ok := s.registry.ByTrackerHost(torrent.TrackerHost)
		if !ok {
			s.logger.WithField("hash", torrent.Hash).Debug("no site match for tagged torrent, skipping")
			return nil
		}
		createdAt := torrent.AddedOn
		if createdAt == 0 {
			createdAt = s.now().Unix()
		}
		task = &domain.TorrentTask{
			Hash:      torrent.Hash,
			Site:      site.ID,
			SiteName:  site.Name,
			Title:     torrent.Name,
			Size:      torrent.Size,
			Origin:    domain.OriginNormal,
			CreatedAt: createdAt,
		}
	}

	// the tag itself is the management intent
	task.HitAndRun = true
	s.evaluator.Initialize(task)
	return task
}
