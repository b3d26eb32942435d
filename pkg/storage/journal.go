package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

var (
	// Bucket names
	bucketRuns  = []byte("runs")
	bucketState = []byte("state")
)

var stateKey = []byte("current")

// Journal persists deploy run records and the last known service state
// in a local BoltDB file.
type Journal struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the journal under dataDir.
func Open(dataDir string) (*Journal, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "deckhand.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordRun appends one deploy run record. Keys sort by start time so
// cursor order is chronological.
func (j *Journal) RecordRun(run *types.DeployRun) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		key := run.StartedAt.UTC().Format(time.RFC3339Nano) + "_" + run.ID
		return b.Put([]byte(key), data)
	})
}

// LastRun returns the most recent deploy run, or nil when the journal
// is empty.
func (j *Journal) LastRun() (*types.DeployRun, error) {
	var run *types.DeployRun
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		_, v := c.Last()
		if v == nil {
			return nil
		}
		run = &types.DeployRun{}
		return json.Unmarshal(v, run)
	})
	return run, err
}

// ListRuns returns up to limit runs, newest first.
func (j *Journal) ListRuns(limit int) ([]*types.DeployRun, error) {
	var runs []*types.DeployRun
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil && len(runs) < limit; k, v = c.Prev() {
			var run types.DeployRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
		}
		return nil
	})
	return runs, err
}

// SaveState persists the last known service state.
func (j *Journal) SaveState(state types.ServiceState) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put(stateKey, []byte(state))
	})
}

// LoadState returns the last persisted service state, defaulting to
// stopped for a fresh journal.
func (j *Journal) LoadState() (types.ServiceState, error) {
	state := types.StateStopped
	err := j.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketState).Get(stateKey); v != nil {
			state = types.ServiceState(v)
		}
		return nil
	})
	return state, err
}
