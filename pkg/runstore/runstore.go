// Package runstore archives exploration runs in BadgerDB so past searches
// can be listed and re-inspected without re-running the device.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/acarlin/figura/pkg/model"
)

// Key prefixes, single byte for efficiency.
const (
	prefixRun = byte(0x01) // run:runID -> Run JSON
)

var ErrNotFound = errors.New("runstore: run not found")

// Params records the exploration settings a run was produced with.
type Params struct {
	Variants    int     `json:"variants"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	Seed        uint32  `json:"seed"`
	Rounds      int     `json:"rounds"`
	Cooling     float64 `json:"cooling,omitempty"`
	GroupSize   int     `json:"group_size"`
}

// Run is one archived exploration: its settings, the template it started
// from, and what it found.
type Run struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Params    Params         `json:"params"`
	Template  *model.Model   `json:"template"`
	Best      *model.Model   `json:"best"`
	TopK      []*model.Model `json:"top_k,omitempty"`
}

// Store is a Badger-backed run archive. Safe for concurrent use.
type Store struct {
	db       *badger.DB
	inMemory bool
}

// Options configure the archive location.
type Options struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir string
	// InMemory runs Badger in memory-only mode, for tests.
	InMemory bool
}

// Open opens or creates the archive.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("runstore: opening archive: %w", err)
	}
	return &Store{db: db, inMemory: opts.InMemory}, nil
}

// OpenInMemory opens a memory-only archive for testing.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

func runKey(id uuid.UUID) []byte {
	return append([]byte{prefixRun}, id[:]...)
}

// Save assigns the run an ID and creation time if unset and persists it.
func (s *Store) Save(run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("runstore: encoding run %s: %w", run.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), data)
	})
}

// Get loads one run by ID.
func (s *Store) Get(id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns all archived runs, newest first.
func (s *Store) List() ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixRun}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var run Run
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			})
			if err != nil {
				return err
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
