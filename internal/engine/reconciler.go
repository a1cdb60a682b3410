package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"seedvigil/internal/clientapi"
	"seedvigil/internal/domain"
	"seedvigil/internal/notify"
	"seedvigil/internal/repository"
	"seedvigil/internal/sites"
)

// Reconciler owns the task store and exposes the two serialized entry
// points: the periodic check cycle and event-driven ingestion. A single
// coarse-grained lock covers each entire cycle or ingestion, so every cycle
// observes one consistent snapshot of the client and the store and writes
// back one consistent result.
type Reconciler struct {
	mu sync.Mutex

	cfg       Config
	repo      repository.StateRepository
	client    clientapi.Client
	resolver  *Resolver
	evaluator *Evaluator
	tagsync   *TagSynchronizer
	cleaner   *Cleaner
	notifier  notify.Notifier
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReconciler(
	cfg Config,
	repo repository.StateRepository,
	client clientapi.Client,
	registry *sites.Registry,
	notifier notify.Notifier,
	logger *logrus.Logger,
) *Reconciler {
	resolver := NewResolver(cfg)
	evaluator := NewEvaluator(resolver, client, cfg.Tag, logger)
	return &Reconciler{
		cfg:       cfg,
		repo:      repo,
		client:    client,
		resolver:  resolver,
		evaluator: evaluator,
		tagsync:   NewTagSynchronizer(cfg.Tag, evaluator, registry, logger),
		cleaner:   NewCleaner(cfg.RetentionDays, logger),
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Config returns the engine configuration the reconciler was built with.
func (r *Reconciler) Config() Config {
	return r.cfg
}

// ResolvePolicy returns the current effective policy for a site.
func (r *Reconciler) ResolvePolicy(siteName string) Policy {
	return r.resolver.Resolve(siteName)
}

// renderTask builds a notification body with the site's current additional
// seed time grace.
func (r *Reconciler) renderTask(task *domain.TorrentTask) string {
	return renderTaskMessage(task, r.resolver.Resolve(task.SiteName).AdditionalSeedTime)
}

// RunCheckCycle executes one full reconciliation pass: snapshot, tag diff,
// live-stat refresh, per-task evaluation, cleanup, statistics, persist. Once
// started it runs to completion; per-task failures never abort the cycle.
func (r *Reconciler) RunCheckCycle(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("checking obligation tasks")

	tasksRaw, err := r.repo.Load(ctx, repository.BucketTorrents)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	tasks := decodeTasks(tasksRaw, r.logger)

	historiesRaw, err := r.repo.Load(ctx, repository.BucketDownloads)
	if err != nil {
		return fmt.Errorf("load histories: %w", err)
	}
	histories := decodeHistories(historiesRaw, r.logger)

	torrents, err := r.client.Torrents(ctx)
	if err != nil {
		return fmt.Errorf("snapshot client torrents: %w", err)
	}
	snapshot := make(map[string]clientapi.Torrent, len(torrents))
	for _, t := range torrents {
		snapshot[t.Hash] = t
	}

	syncResult := r.tagsync.Sync(tasks, histories, snapshot)
	r.notifySyncResult(syncResult)

	if len(tasks) == 0 {
		r.logger.Info("no obligation tasks to check")
		return r.persist(ctx, tasks, nil)
	}
	r.logger.WithField("count", len(tasks)).Info("evaluating obligation tasks")

	marked := r.tagsync.MarkMissing(tasks, snapshot)
	for _, task := range marked {
		severity := notify.SeverityWarning
		if task.Status == domain.StatusCompliant || task.Status == domain.StatusUnrestricted {
			severity = notify.SeverityInfo
		}
		r.notifier.Send("Obligation Task Deleted", r.renderTask(task), severity)
	}

	r.refreshLiveStats(tasks, snapshot)

	for hash, task := range tasks {
		r.evaluateIsolated(ctx, hash, task)
	}

	removed := r.cleaner.Clean(tasks)

	return r.persist(ctx, tasks, removed)
}

// refreshLiveStats copies the client-reported transfer stats onto every
// tracked task still present in the snapshot.
func (r *Reconciler) refreshLiveStats(tasks map[string]*domain.TorrentTask, snapshot map[string]clientapi.Torrent) {
	for hash, task := range tasks {
		torrent, ok := snapshot[hash]
		if !ok {
			continue
		}
		task.Downloaded = torrent.Downloaded
		task.Uploaded = torrent.Uploaded
		task.Ratio = torrent.Ratio
		task.SeedingTime = torrent.SeedingTime
	}
}

// evaluateIsolated advances one task's state machine. A failure evaluating
// one task is logged with its hash and never blocks the rest of the cycle.
func (r *Reconciler) evaluateIsolated(ctx context.Context, hash string, task *domain.TorrentTask) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithField("hash", hash).Errorf("task evaluation failed: %v", rec)
		}
	}()

	switch r.evaluator.Evaluate(ctx, task) {
	case TransitionCompliant:
		r.notifier.Send("Obligation Met", r.renderTask(task), notify.SeverityInfo)
	case TransitionOverdue:
		r.notifier.Send("Obligation Overdue", r.renderTask(task), notify.SeverityWarning)
	case TransitionNeedsSeeding:
		r.notifier.Send("Obligation Needs Seeding", r.renderTask(task), notify.SeverityWarning)
	}
}

func (r *Reconciler) notifySyncResult(result SyncResult) {
	if result.Empty() {
		return
	}
	if len(result.Added) > 0 {
		r.notifier.Send("Obligation Tasks Joined",
			renderSummary("joined obligation management", "management tag added", result.Added),
			notify.SeverityInfo)
	}
	if len(result.Removed) > 0 {
		r.notifier.Send("Obligation Tasks Removed",
			renderSummary("left obligation management", "management tag removed", result.Removed),
			notify.SeverityInfo)
	}
	if len(result.Revived) > 0 {
		r.notifier.Send("Obligation Tasks Restored",
			renderSummary("restored to normal state", "torrent reappeared in the download client", result.Revived),
			notify.SeverityInfo)
	}
}

// persist writes the active store, appends removed tasks to the archive, and
// recomputes the statistics snapshot.
func (r *Reconciler) persist(ctx context.Context, tasks map[string]*domain.TorrentTask, removed []*domain.TorrentTask) error {
	archivedRaw, err := r.repo.Load(ctx, repository.BucketArchived)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	archived := decodeTasks(archivedRaw, r.logger)
	for _, task := range removed {
		archived[task.Hash] = task
	}

	stats := Aggregate(tasks, archived)
	r.logger.WithFields(logrus.Fields{
		"total":       stats.TotalCount,
		"pending":     stats.Pending,
		"in_progress": stats.InProgress,
		"compliant":   stats.Compliant,
		"deleted":     stats.Deleted,
		"other":       stats.Other,
	}).Info("obligation task statistics")

	statsDoc, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := r.repo.Save(ctx, repository.BucketStatistic, statsDoc); err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}

	if len(removed) > 0 {
		archiveDoc, err := encodeTasks(archived)
		if err != nil {
			return err
		}
		if err := r.repo.Save(ctx, repository.BucketArchived, archiveDoc); err != nil {
			return fmt.Errorf("save archive: %w", err)
		}
	}

	return r.saveTasks(ctx, tasks)
}

func (r *Reconciler) saveTasks(ctx context.Context, tasks map[string]*domain.TorrentTask) error {
	doc, err := encodeTasks(tasks)
	if err != nil {
		return err
	}
	if err := r.repo.Save(ctx, repository.BucketTorrents, doc); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// Tasks returns a read snapshot of the active store sorted by creation time,
// newest first.
func (r *Reconciler) Tasks(ctx context.Context) ([]domain.TorrentTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.repo.Load(ctx, repository.BucketTorrents)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	tasks := decodeTasks(raw, r.logger)

	out := make([]domain.TorrentTask, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// Statistics returns the last persisted statistics snapshot.
func (r *Reconciler) Statistics(ctx context.Context) (domain.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.repo.Load(ctx, repository.BucketStatistic)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("load statistics: %w", err)
	}
	var stats domain.Statistics
	if len(raw) == 0 {
		return stats, nil
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.Statistics{}, fmt.Errorf("decode statistics: %w", err)
	}
	return stats, nil
}
