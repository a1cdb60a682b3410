package engine

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"seedvigil/internal/domain"
)

// The task store is a plain map keyed by info-hash, persisted as one JSON
// document per bucket. Loads fail closed: a malformed individual record is
// skipped and logged, never aborting the whole document.

func decodeTasks(raw []byte, logger *logrus.Logger) map[string]*domain.TorrentTask {
	tasks := make(map[string]*domain.TorrentTask)
	if len(raw) == 0 {
		return tasks
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		logger.WithError(err).Error("task document is not a valid record map, starting empty")
		return tasks
	}

	for hash, rec := range records {
		var task domain.TorrentTask
		if err := json.Unmarshal(rec, &task); err != nil {
			logger.WithError(err).WithField("hash", hash).Warn("skipping malformed task record")
			continue
		}
		if task.Hash == "" {
			task.Hash = hash
		}
		tasks[hash] = &task
	}
	return tasks
}

func encodeTasks(tasks map[string]*domain.TorrentTask) ([]byte, error) {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode task document: %w", err)
	}
	return raw, nil
}

func decodeHistories(raw []byte, logger *logrus.Logger) map[string]*domain.TorrentHistory {
	histories := make(map[string]*domain.TorrentHistory)
	if len(raw) == 0 {
		return histories
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		logger.WithError(err).Error("history document is not a valid record map, starting empty")
		return histories
	}

	for hash, rec := range records {
		var history domain.TorrentHistory
		if err := json.Unmarshal(rec, &history); err != nil {
			logger.WithError(err).WithField("hash", hash).Warn("skipping malformed history record")
			continue
		}
		if history.Hash == "" {
			history.Hash = hash
		}
		histories[hash] = &history
	}
	return histories
}

func encodeHistories(histories map[string]*domain.TorrentHistory) ([]byte, error) {
	raw, err := json.Marshal(histories)
	if err != nil {
		return nil, fmt.Errorf("encode history document: %w", err)
	}
	return raw, nil
}
