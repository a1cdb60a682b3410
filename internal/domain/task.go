package domain

import "time"

// HNRStatus tracks where a torrent sits in its hit-and-run obligation lifecycle.
type HNRStatus string

const (
	StatusPending      HNRStatus = "pending"
	StatusUnrestricted HNRStatus = "unrestricted"
	StatusInProgress   HNRStatus = "in_progress"
	StatusCompliant    HNRStatus = "compliant"
	StatusOverdue      HNRStatus = "overdue"
	StatusNeedsSeeding HNRStatus = "needs_seeding"
)

// Label returns the operator-facing wording for a status.
func (s HNRStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUnrestricted:
		return "Unrestricted"
	case StatusInProgress:
		return "In Progress"
	case StatusCompliant:
		return "Compliant"
	case StatusOverdue:
		return "Overdue"
	case StatusNeedsSeeding:
		return "Needs Seeding"
	default:
		return string(s)
	}
}

// TaskOrigin records how a torrent entered the system.
type TaskOrigin string

const (
	OriginNormal       TaskOrigin = "normal"
	OriginSubscription TaskOrigin = "subscription"
	OriginBrush        TaskOrigin = "brush"
)

// Label returns the operator-facing wording for an origin.
func (o TaskOrigin) Label() string {
	switch o {
	case OriginNormal:
		return "Download"
	case OriginSubscription:
		return "Subscription"
	case OriginBrush:
		return "Promotional Seeding"
	default:
		return string(o)
	}
}

// TorrentTask is the mutable obligation record tracked per info-hash. The hash is
// the sole identity; at most one task per hash exists in the store at any time.
type TorrentTask struct {
	Hash        string     `json:"hash"`
	Site        string     `json:"site"`
	SiteName    string     `json:"site_name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Size        int64      `json:"size"`
	Origin      TaskOrigin `json:"origin"`
	CreatedAt   int64      `json:"created_at"`

	HitAndRun bool      `json:"hit_and_run"`
	Status    HNRStatus `json:"status"`

	// Obligation parameters copied from the resolved config at creation time.
	// DeadlineTime is fixed once set and never re-derived. The additional
	// seed time grace is deliberately NOT stored: it is re-resolved from the
	// site policy on every evaluation so config changes reach existing tasks.
	HRRatio        float64 `json:"hr_ratio,omitempty"`
	HRDuration     float64 `json:"hr_duration,omitempty"`
	HRDeadlineDays int     `json:"hr_deadline_days,omitempty"`
	DeadlineTime   int64   `json:"deadline_time,omitempty"`

	// Live stats refreshed from the download client every cycle.
	Downloaded  int64   `json:"downloaded"`
	Uploaded    int64   `json:"uploaded"`
	Ratio       float64 `json:"ratio"`
	SeedingTime int64   `json:"seeding_time"`

	Deleted     bool  `json:"deleted"`
	DeletedTime int64 `json:"deleted_time,omitempty"`
	HRMetTime   int64 `json:"hr_met_time,omitempty"`
}

// Identifier is the short human-readable handle used in logs and messages.
func (t *TorrentTask) Identifier() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Hash
}

// RequiredSeedingHours is the effective seeding requirement given the
// additional seed time currently granted by the site policy.
func (t *TorrentTask) RequiredSeedingHours(additionalSeedTime float64) float64 {
	return t.HRDuration + additionalSeedTime
}

// FormattedDeadline renders the fixed deadline timestamp, or "-" when unset.
func (t *TorrentTask) FormattedDeadline() string {
	if t.DeadlineTime == 0 {
		return "-"
	}
	return time.Unix(t.DeadlineTime, 0).Format("2006-01-02 15:04:05")
}

// TorrentHistory is the append-only record of the original ingestion event per
// hash. It has its own lifecycle (fixed retention window) independent of the
// task and is used to reconstruct a task when tag reconciliation finds an
// untracked tagged torrent whose descriptor is still known.
type TorrentHistory struct {
	Hash        string     `json:"hash"`
	Site        string     `json:"site"`
	SiteName    string     `json:"site_name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Size        int64      `json:"size"`
	Origin      TaskOrigin `json:"origin"`
	CreatedAt   int64      `json:"created_at"`
}

// Task reconstructs a fresh obligation task from the recorded ingestion event.
func (h *TorrentHistory) Task() *TorrentTask {
	return &TorrentTask{
		Hash:        h.Hash,
		Site:        h.Site,
		SiteName:    h.SiteName,
		Title:       h.Title,
		Description: h.Description,
		Size:        h.Size,
		Origin:      h.Origin,
		CreatedAt:   h.CreatedAt,
	}
}

// Statistics is the display snapshot recomputed from scratch each cycle over
// the union of active and archived tasks.
type Statistics struct {
	TotalCount int `json:"total_count"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Compliant  int `json:"compliant"`
	Other      int `json:"other"`
	Deleted    int `json:"deleted"`
}
