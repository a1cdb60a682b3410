package engine

import (
	"fmt"
	"strings"

	"seedvigil/internal/domain"
)

// Outgoing message bodies are built from an explicit ordered table of
// {field identifier, label, formatting function} consumed by one generic
// renderer. The additional seed time is resolved from the site policy at
// render time, mirroring evaluation.

type messageField struct {
	id     string
	label  string
	format func(t *domain.TorrentTask, additionalSeedTime float64) string
}

// requirementFields is the layout for tasks still working toward their
// obligation: it shows what is required.
var requirementFields = []messageField{
	{"site_name", "Site", func(t *domain.TorrentTask, _ float64) string { return t.SiteName }},
	{"origin", "Type", func(t *domain.TorrentTask, _ float64) string { return t.Origin.Label() }},
	{"title", "Title", func(t *domain.TorrentTask, _ float64) string { return t.Title }},
	{"description", "Description", func(t *domain.TorrentTask, _ float64) string { return t.Description }},
	{"hr_duration", "Required Seeding", func(t *domain.TorrentTask, additional float64) string {
		if t.HRDuration == 0 {
			return ""
		}
		if additional > 0 {
			return fmt.Sprintf("%s(+%s) hours", formatNumber(t.HRDuration), formatNumber(additional))
		}
		return fmt.Sprintf("%s hours", formatNumber(t.HRDuration))
	}},
	{"hr_ratio", "Required Ratio", func(t *domain.TorrentTask, _ float64) string {
		if t.HRRatio == 0 {
			return ""
		}
		return formatNumber(t.HRRatio)
	}},
	{"deadline_time", "Deadline", func(t *domain.TorrentTask, _ float64) string {
		if t.DeadlineTime == 0 {
			return ""
		}
		return t.FormattedDeadline()
	}},
	{"status", "Status", func(t *domain.TorrentTask, _ float64) string { return t.Status.Label() }},
}

// outcomeFields is the layout for tasks past a terminal or warning
// transition: it shows what was achieved against what was required.
var outcomeFields = []messageField{
	{"site_name", "Site", func(t *domain.TorrentTask, _ float64) string { return t.SiteName }},
	{"origin", "Type", func(t *domain.TorrentTask, _ float64) string { return t.Origin.Label() }},
	{"title", "Title", func(t *domain.TorrentTask, _ float64) string { return t.Title }},
	{"description", "Description", func(t *domain.TorrentTask, _ float64) string { return t.Description }},
	{"seeding_time", "Seeding", func(t *domain.TorrentTask, additional float64) string {
		return formatComparison(float64(t.SeedingTime)/3600, t.RequiredSeedingHours(additional), " hours")
	}},
	{"ratio", "Ratio", func(t *domain.TorrentTask, _ float64) string {
		return formatComparison(t.Ratio, t.HRRatio, "")
	}},
	{"deadline_time", "Deadline", func(t *domain.TorrentTask, _ float64) string {
		if t.DeadlineTime == 0 {
			return ""
		}
		return t.FormattedDeadline()
	}},
	{"status", "Status", func(t *domain.TorrentTask, _ float64) string { return t.Status.Label() }},
}

// renderTaskMessage builds the notification body for a single task, picking
// the layout by where the task sits in its lifecycle.
func renderTaskMessage(task *domain.TorrentTask, additionalSeedTime float64) string {
	fields := outcomeFields
	if task.Status == domain.StatusInProgress || task.Status == domain.StatusPending {
		fields = requirementFields
	}

	var lines []string
	for _, f := range fields {
		value := f.format(task, additionalSeedTime)
		if value == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", f.label, value))
	}
	return strings.Join(lines, "\n")
}

// renderSummary builds the aggregated body for a batch of tag-sync changes.
func renderSummary(action, reason string, tasks []*domain.TorrentTask) string {
	names := make(map[string]struct{})
	for _, t := range tasks {
		name := t.SiteName
		if name == "" {
			name = "N/A"
		}
		names[name] = struct{}{}
	}
	siteNames := make([]string, 0, len(names))
	for name := range names {
		siteNames = append(siteNames, name)
	}

	first := tasks[0].Identifier()
	return fmt.Sprintf("Sites: %s\nTorrents: %s and %d other(s) %s\nReason: %s",
		strings.Join(siteNames, ", "), first, len(tasks)-1, action, reason)
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func formatComparison(actual, required float64, suffix string) string {
	return fmt.Sprintf("%.2f / %.2f%s", actual, required, suffix)
}
