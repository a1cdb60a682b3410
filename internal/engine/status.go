package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"seedvigil/internal/clientapi"
	"seedvigil/internal/domain"
)

// Transition is the outcome of one evaluation step, used by the reconciler to
// drive notifications.
type Transition string

const (
	TransitionNone         Transition = ""
	TransitionCompliant    Transition = "compliant"
	TransitionOverdue      Transition = "overdue"
	TransitionNeedsSeeding Transition = "needs_seeding"
)

// Evaluator is the obligation state machine. It initializes new tasks from
// the resolved policy and advances in-progress tasks each cycle.
type Evaluator struct {
	resolver *Resolver
	client   clientapi.Client
	tag      string
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEvaluator(resolver *Resolver, client clientapi.Client, tag string, logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		resolver: resolver,
		client:   client,
		tag:      tag,
		logger:   logger,
		now:      time.Now,
	}
}

// Initialize classifies a freshly created task. A forced site policy marks
// the task as an obligation regardless of the classification hint. Obligation
// parameters are copied from the resolved policy at this instant and never
// re-resolved; the deadline timestamp is fixed from the creation time.
func (e *Evaluator) Initialize(task *domain.TorrentTask) {
	policy := e.resolver.Resolve(task.SiteName)

	if policy.Forced {
		task.HitAndRun = true
	}

	if !task.HitAndRun {
		task.Status = domain.StatusUnrestricted
		return
	}

	task.HRRatio = policy.HRRatio
	task.HRDuration = policy.HRDuration
	task.HRDeadlineDays = policy.HRDeadlineDays
	if task.CreatedAt == 0 {
		task.CreatedAt = e.now().Unix()
	}
	if task.DeadlineTime == 0 {
		task.DeadlineTime = task.CreatedAt + int64(task.HRDeadlineDays)*86400
	}
	task.Status = domain.StatusInProgress
}

// Evaluate advances the state machine one step. Only in-progress tasks are
// examined; every other state is sticky until the cleaner removes the task.
// The compliance check wins over the deadline and deletion checks within the
// same cycle.
func (e *Evaluator) Evaluate(ctx context.Context, task *domain.TorrentTask) Transition {
	if !task.HitAndRun {
		return TransitionNone
	}
	if task.Status != domain.StatusInProgress {
		return TransitionNone
	}

	if e.meetsRequirements(task) {
		task.Status = domain.StatusCompliant
		task.HRMetTime = e.now().Unix()
		e.removeTag(ctx, task)
		e.logStatus(task, "obligation met")
		return TransitionCompliant
	}

	now := e.now().Unix()
	switch {
	case now > task.DeadlineTime:
		task.Status = domain.StatusOverdue
		e.logStatus(task, "deadline passed")
		return TransitionOverdue
	case task.Deleted:
		task.Status = domain.StatusNeedsSeeding
		e.logStatus(task, "seeding interrupted")
		return TransitionNeedsSeeding
	}

	e.logStatus(task, "obligation not yet met")
	return TransitionNone
}

// meetsRequirements checks the seeding duration and share ratio thresholds.
// Either one alone satisfies the obligation. The additional seed time is
// re-resolved from the site policy each time, not read from the task record.
func (e *Evaluator) meetsRequirements(task *domain.TorrentTask) bool {
	additional := e.resolver.Resolve(task.SiteName).AdditionalSeedTime
	durationOK := float64(task.SeedingTime) > (task.HRDuration+additional)*3600
	ratioOK := task.Ratio > task.HRRatio
	return durationOK || ratioOK
}

// removeTag clears the management tag on the client. Tagging is a best-effort
// side effect, not a transaction participant; failures are logged and
// swallowed.
func (e *Evaluator) removeTag(ctx context.Context, task *domain.TorrentTask) {
	if e.client == nil {
		return
	}
	if err := e.client.RemoveTag(ctx, task.Hash, e.tag); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"hash":   task.Hash,
			"action": "remove",
		}).Error("tag mutation failed")
	}
}

func (e *Evaluator) logStatus(task *domain.TorrentTask, description string) {
	additional := e.resolver.Resolve(task.SiteName).AdditionalSeedTime
	e.logger.WithFields(logrus.Fields{
		"site":          task.SiteName,
		"torrent":       task.Identifier(),
		"status":        task.Status,
		"seeding_hours": float64(task.SeedingTime) / 3600,
		"needed_hours":  task.RequiredSeedingHours(additional),
		"needed_ratio":  task.HRRatio,
		"deadline":      task.FormattedDeadline(),
	}).Info(description)
}
