package clientapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	qbt "github.com/autobrr/go-qbittorrent"
)

// QBittorrent adapts a qBittorrent instance to the Client interface.
type QBittorrent struct {
	client *qbt.Client
}

// NewQBittorrent builds an adapter for the qBittorrent Web API at host.
func NewQBittorrent(host, username, password string) *QBittorrent {
	return &QBittorrent{
		client: qbt.NewClient(qbt.Config{
			Host:     host,
			Username: username,
			Password: password,
		}),
	}
}

// Login authenticates against the Web API. The underlying client re-uses the
// session cookie for subsequent calls.
func (q *QBittorrent) Login(ctx context.Context) error {
	if err := q.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("qbittorrent login: %w", err)
	}
	return nil
}

func (q *QBittorrent) Torrents(ctx context.Context) ([]Torrent, error) {
	list, err := q.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("list torrents: %w", err)
	}

	out := make([]Torrent, 0, len(list))
	for _, t := range list {
		out = append(out, Torrent{
			Hash:        strings.ToLower(t.Hash),
			Name:        t.Name,
			Size:        t.Size,
			Tags:        splitTags(t.Tags),
			Ratio:       t.Ratio,
			Uploaded:    t.Uploaded,
			Downloaded:  t.Downloaded,
			SeedingTime: t.SeedingTime,
			AddedOn:     t.AddedOn,
			TrackerHost: trackerHost(t.Tracker),
		})
	}
	return out, nil
}

func (q *QBittorrent) AddTag(ctx context.Context, hash, tag string) error {
	if err := q.client.AddTagsCtx(ctx, []string{hash}, tag); err != nil {
		return fmt.Errorf("add tag %q to %s: %w", tag, hash, err)
	}
	return nil
}

func (q *QBittorrent) RemoveTag(ctx context.Context, hash, tag string) error {
	if err := q.client.RemoveTagsCtx(ctx, []string{hash}, tag); err != nil {
		return fmt.Errorf("remove tag %q from %s: %w", tag, hash, err)
	}
	return nil
}

// splitTags parses qBittorrent's comma separated tag field.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func trackerHost(tracker string) string {
	if tracker == "" {
		return ""
	}
	u, err := url.Parse(tracker)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

var _ Client = (*QBittorrent)(nil)
