package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/sirupsen/logrus"

	"seedvigil/internal/domain"
	"seedvigil/internal/notify"
	"seedvigil/internal/repository"
)

// historyWindow is the fixed retention window for ingestion records,
// independent of obligation state.
const historyWindow = 30 * 24 * time.Hour

// DownloadEvent is an external "download observed" notification delivered by
// whatever transport exists at the boundary.
type DownloadEvent struct {
	Hash        string            `json:"hash"`
	Downloader  string            `json:"downloader"`
	Origin      domain.TaskOrigin `json:"origin"`
	Site        string            `json:"site"`
	SiteName    string            `json:"site_name"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Size        int64             `json:"size"`
	AddedAt     int64             `json:"added_at"`
	// HitAndRun is the classification hint from the event source; a forced
	// site policy overrides it.
	HitAndRun bool `json:"hit_and_run"`
}

var (
	ErrUnmonitoredDownloader = errors.New("event is for an unmonitored downloader")
	ErrInvalidEvent          = errors.New("event lacks hash or descriptor")
)

// IngestDownload converts a download-observed event into a tracked task. The
// ingestion record is persisted regardless of the obligation outcome; the
// task itself is stored, and the management tag applied, only when an
// obligation applies.
func (r *Reconciler) IngestDownload(ctx context.Context, ev DownloadEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Downloader != r.cfg.DownloaderName {
		r.logger.WithField("downloader", ev.Downloader).Info("ignoring event from unmonitored downloader")
		return ErrUnmonitoredDownloader
	}

	hash, err := normalizeHash(ev.Hash)
	if err != nil || ev.Title == "" {
		return ErrInvalidEvent
	}

	if ev.AddedAt == 0 {
		ev.AddedAt = r.now().Unix()
	}

	if err := r.recordHistory(ctx, hash, ev); err != nil {
		return err
	}

	if !r.cfg.SiteEnabled(ev.Site) {
		r.logger.WithField("site", ev.SiteName).Info("site not under obligation management, skipping")
		return nil
	}

	task := &domain.TorrentTask{
		Hash:        hash,
		Site:        ev.Site,
		SiteName:    ev.SiteName,
		Title:       ev.Title,
		Description: ev.Description,
		Size:        ev.Size,
		Origin:      ev.Origin,
		CreatedAt:   ev.AddedAt,
		HitAndRun:   ev.HitAndRun,
	}
	r.evaluator.Initialize(task)

	if !task.HitAndRun {
		r.logger.WithFields(logrus.Fields{
			"site":    task.SiteName,
			"torrent": task.Identifier(),
		}).Info("download carries no obligation, skipping")
		return nil
	}

	raw, err := r.repo.Load(ctx, repository.BucketTorrents)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	tasks := decodeTasks(raw, r.logger)
	tasks[hash] = task
	if err := r.saveTasks(ctx, tasks); err != nil {
		return err
	}

	r.addTag(ctx, task)

	r.logger.WithFields(logrus.Fields{
		"site":    task.SiteName,
		"torrent": task.Identifier(),
	}).Info("new obligation task")
	r.notifier.Send("New Obligation Task", r.renderTask(task), notify.SeverityInfo)
	return nil
}

// recordHistory appends the ingestion event and prunes records older than the
// fixed history window.
func (r *Reconciler) recordHistory(ctx context.Context, hash string, ev DownloadEvent) error {
	raw, err := r.repo.Load(ctx, repository.BucketDownloads)
	if err != nil {
		return fmt.Errorf("load histories: %w", err)
	}
	histories := decodeHistories(raw, r.logger)

	histories[hash] = &domain.TorrentHistory{
		Hash:        hash,
		Site:        ev.Site,
		SiteName:    ev.SiteName,
		Title:       ev.Title,
		Description: ev.Description,
		Size:        ev.Size,
		Origin:      ev.Origin,
		CreatedAt:   ev.AddedAt,
	}

	cutoff := r.now().Add(-historyWindow).Unix()
	for h, record := range histories {
		if record.CreatedAt != 0 && record.CreatedAt <= cutoff {
			delete(histories, h)
		}
	}

	doc, err := encodeHistories(histories)
	if err != nil {
		return err
	}
	if err := r.repo.Save(ctx, repository.BucketDownloads, doc); err != nil {
		return fmt.Errorf("save histories: %w", err)
	}
	return nil
}

// addTag applies the management tag on the client, best effort.
func (r *Reconciler) addTag(ctx context.Context, task *domain.TorrentTask) {
	if r.client == nil {
		return
	}
	if err := r.client.AddTag(ctx, task.Hash, r.cfg.Tag); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"hash":   task.Hash,
			"action": "add",
		}).Error("tag mutation failed")
	}
}

// normalizeHash validates and lower-cases a torrent info-hash.
func normalizeHash(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty hash")
	}
	h := metainfo.Hash{}
	if err := h.FromHexString(strings.ToLower(raw)); err != nil {
		return "", fmt.Errorf("parse info hash: %w", err)
	}
	return h.HexString(), nil
}
