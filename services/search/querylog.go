package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/meghashyamc/searchbox/db/kvdb"
	"github.com/meghashyamc/searchbox/logger"
)

// StatusStore is the key-value store query records are kept in.
type StatusStore interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
}

// queryLog persists one record per generation. Keys are zero-padded so the
// store's byte order is generation order.
type queryLog struct {
	store  StatusStore
	logger logger.Logger
	retain int
}

func generationKey(generation uint64) string {
	return fmt.Sprintf("%020d", generation)
}

func (l *queryLog) put(record kvdb.QueryRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		l.logger.Error("failed to marshal query record", "generation", record.Generation, "err", err.Error())
		return
	}

	if err := l.store.Set(kvdb.QueriesBucket, generationKey(record.Generation), string(data)); err != nil {
		l.logger.Error("failed to store query record", "generation", record.Generation, "err", err.Error())
	}
}

func (l *queryLog) get(generation uint64) (*kvdb.QueryRecord, error) {
	value, err := l.store.Get(kvdb.QueriesBucket, generationKey(generation))
	if err != nil {
		return nil, err
	}

	var record kvdb.QueryRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		l.logger.Error("failed to unmarshal query record", "generation", generation, "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal query record %d: %w", generation, err)
	}

	return &record, nil
}

// lastGeneration returns the highest recorded generation, or 0.
func (l *queryLog) lastGeneration() (uint64, error) {
	keys, err := l.store.GetAllKeys(kvdb.QueriesBucket)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	generation, err := strconv.ParseUint(keys[len(keys)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid query record key %q: %w", keys[len(keys)-1], err)
	}
	return generation, nil
}

// prune drops the oldest records beyond the retention limit.
func (l *queryLog) prune() {
	if l.retain <= 0 {
		return
	}

	keys, err := l.store.GetAllKeys(kvdb.QueriesBucket)
	if err != nil {
		l.logger.Error("failed to list query records", "err", err.Error())
		return
	}

	for i := 0; i < len(keys)-l.retain; i++ {
		if err := l.store.Delete(kvdb.QueriesBucket, keys[i]); err != nil && !errors.Is(err, kvdb.ErrNotFound) {
			l.logger.Error("failed to delete query record", "key", keys[i], "err", err.Error())
		}
	}
}
