package clientapi

import "context"

// Torrent is the engine's view of a torrent reported by the download client.
type Torrent struct {
	Hash        string
	Name        string
	Size        int64
	Tags        []string
	Ratio       float64
	Uploaded    int64
	Downloaded  int64
	SeedingTime int64 // seconds since download completed
	AddedOn     int64 // unix seconds
	TrackerHost string
}

// HasTag reports whether the torrent carries the given client-side label.
func (t Torrent) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Client is the narrow capability set the engine needs from a download
// client. Implementations must tolerate hashes disappearing and reappearing
// between calls.
type Client interface {
	Torrents(ctx context.Context) ([]Torrent, error)
	AddTag(ctx context.Context, hash, tag string) error
	RemoveTag(ctx context.Context, hash, tag string) error
}
