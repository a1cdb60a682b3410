package engine

import "seedvigil/internal/domain"

// Aggregate recomputes the display snapshot from scratch over the union of
// active and archived tasks. No incremental counters: the tracked set is
// small and bounded, and a full recount cannot drift from store contents.
func Aggregate(active, archived map[string]*domain.TorrentTask) domain.Statistics {
	var stats domain.Statistics

	count := func(tasks map[string]*domain.TorrentTask, seen map[string]struct{}) {
		for hash, task := range tasks {
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}

			if task.Deleted {
				stats.Deleted++
			}
			if !task.HitAndRun {
				continue
			}
			stats.TotalCount++
			switch task.Status {
			case domain.StatusPending:
				stats.Pending++
			case domain.StatusInProgress:
				stats.InProgress++
			case domain.StatusCompliant:
				stats.Compliant++
			default:
				stats.Other++
			}
		}
	}

	// archived first: on a duplicate hash the archived record wins
	seen := make(map[string]struct{}, len(active)+len(archived))
	count(archived, seen)
	count(active, seen)
	return stats
}
