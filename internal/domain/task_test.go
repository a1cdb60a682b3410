package domain

import "testing"

func TestStatusLabel(t *testing.T) {
	cases := map[HNRStatus]string{
		StatusPending:      "Pending",
		StatusUnrestricted: "Unrestricted",
		StatusInProgress:   "In Progress",
		StatusCompliant:    "Compliant",
		StatusOverdue:      "Overdue",
		StatusNeedsSeeding: "Needs Seeding",
		HNRStatus("weird"): "weird",
	}
	for status, want := range cases {
		if got := status.Label(); got != want {
			t.Errorf("%s.Label() = %q, want %q", status, got, want)
		}
	}
}

func TestTaskIdentifier(t *testing.T) {
	task := TorrentTask{Hash: "abc", Title: "named"}
	if task.Identifier() != "named" {
		t.Errorf("identifier = %q", task.Identifier())
	}
	task.Title = ""
	if task.Identifier() != "abc" {
		t.Errorf("identifier = %q, want hash fallback", task.Identifier())
	}
}

func TestRequiredSeedingHours(t *testing.T) {
	task := TorrentTask{HRDuration: 36}
	if got := task.RequiredSeedingHours(24); got != 60 {
		t.Errorf("required hours = %v, want 60", got)
	}
	if got := task.RequiredSeedingHours(0); got != 36 {
		t.Errorf("required hours without grace = %v, want 36", got)
	}
}

func TestFormattedDeadline(t *testing.T) {
	if got := (&TorrentTask{}).FormattedDeadline(); got != "-" {
		t.Errorf("unset deadline = %q, want -", got)
	}
	task := &TorrentTask{DeadlineTime: 1780000000}
	if got := task.FormattedDeadline(); got == "-" || len(got) != len("2006-01-02 15:04:05") {
		t.Errorf("deadline = %q", got)
	}
}

func TestHistoryTask(t *testing.T) {
	history := &TorrentHistory{
		Hash:      "abc",
		Site:      "site-a",
		SiteName:  "Site A",
		Title:     "t",
		Size:      42,
		Origin:    OriginSubscription,
		CreatedAt: 1000,
	}
	task := history.Task()
	if task.Hash != "abc" || task.SiteName != "Site A" || task.Origin != OriginSubscription || task.CreatedAt != 1000 {
		t.Errorf("task = %+v", task)
	}
	if task.HitAndRun || task.Status != "" {
		t.Error("reconstructed task must start unclassified")
	}
}
