package engine

import (
	"strings"
	"testing"

	"seedvigil/internal/domain"
)

func TestRenderTaskMessage(t *testing.T) {
	t.Run("in-progress task shows requirements", func(t *testing.T) {
		task := &domain.TorrentTask{
			SiteName:     "Site A",
			Origin:       domain.OriginNormal,
			Title:        "some.release",
			Status:       domain.StatusInProgress,
			HRDuration:   36,
			HRRatio:      1.0,
			DeadlineTime: 1780000000,
		}
		body := renderTaskMessage(task, 24)

		for _, want := range []string{
			"Site: Site A",
			"Type: Download",
			"Title: some.release",
			"Required Seeding: 36(+24) hours",
			"Required Ratio: 1",
			"Status: In Progress",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q:\n%s", want, body)
			}
		}
	})

	t.Run("terminal task shows achieved versus required", func(t *testing.T) {
		task := &domain.TorrentTask{
			SiteName:    "Site A",
			Origin:      domain.OriginSubscription,
			Title:       "some.release",
			Status:      domain.StatusCompliant,
			HRDuration:  36,
			HRRatio:     1.0,
			SeedingTime: 61 * 3600,
			Ratio:       0.8,
		}
		body := renderTaskMessage(task, 24)

		for _, want := range []string{
			"Seeding: 61.00 / 60.00 hours",
			"Ratio: 0.80 / 1.00",
			"Status: Compliant",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q:\n%s", want, body)
			}
		}
	})

	t.Run("empty fields are skipped", func(t *testing.T) {
		task := &domain.TorrentTask{Title: "x", Status: domain.StatusPending}
		body := renderTaskMessage(task, 0)
		if strings.Contains(body, "Description") || strings.Contains(body, "Deadline") {
			t.Errorf("empty fields rendered:\n%s", body)
		}
	})
}

func TestRenderSummary(t *testing.T) {
	tasks := []*domain.TorrentTask{
		{SiteName: "Site A", Title: "first"},
		{SiteName: "Site A", Title: "second"},
		{Title: "third"},
	}
	body := renderSummary("joined obligation management", "management tag added", tasks)

	for _, want := range []string{"Site A", "N/A", "first and 2 other(s)", "management tag added"} {
		if !strings.Contains(body, want) {
			t.Errorf("summary missing %q:\n%s", want, body)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	if got := formatNumber(36); got != "36" {
		t.Errorf("formatNumber(36) = %q", got)
	}
	if got := formatNumber(1.5); got != "1.5" {
		t.Errorf("formatNumber(1.5) = %q", got)
	}
}
