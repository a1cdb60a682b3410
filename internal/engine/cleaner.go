package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"seedvigil/internal/domain"
)

// Cleaner removes terminal and stale records from the task store. Removal is
// a store deletion, not a state transition; no task leaves the store by any
// other path.
type Cleaner struct {
	retentionDays int
	logger        *logrus.Logger
	now           func() time.Time
}

func NewCleaner(retentionDays int, logger *logrus.Logger) *Cleaner {
	return &Cleaner{
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// Clean deletes a task when any of the following holds:
//   - compliant with a met-time older than the retention window
//   - compliant with no met-time recorded (integrity repair, removed at once)
//   - deleted with a deleted-time older than the retention window
//   - deleted with no deleted-time recorded (removed at once)
//
// A retention window of zero or less disables cleanup entirely. Returns the
// removed tasks so the caller can archive them.
func (c *Cleaner) Clean(tasks map[string]*domain.TorrentTask) []*domain.TorrentTask {
	if c.retentionDays <= 0 {
		c.logger.Debug("retention window disabled, skipping cleanup")
		return nil
	}

	now := c.now().Unix()
	window := int64(c.retentionDays) * 86400

	var removed []*domain.TorrentTask
	for hash, task := range tasks {
		reason := ""
		switch {
		case task.Status == domain.StatusCompliant && task.HRMetTime != 0 && now-task.HRMetTime > window:
			reason = "compliant beyond retention window"
		case task.Status == domain.StatusCompliant && task.HRMetTime == 0:
			reason = "compliant without met-time"
		case task.Deleted && task.DeletedTime != 0 && now-task.DeletedTime > window:
			reason = "deleted beyond retention window"
		case task.Deleted && task.DeletedTime == 0:
			reason = "deleted without deleted-time"
		default:
			continue
		}

		delete(tasks, hash)
		removed = append(removed, task)
		c.logger.WithFields(logrus.Fields{
			"site":    task.SiteName,
			"torrent": task.Identifier(),
			"reason":  reason,
		}).Info("task cleaned up")
	}
	return removed
}
