// Package history keeps a record of script runs in a bbolt database.
package history

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/obmm/pkgs/installer"
)

var runsBucket = []byte("runs")

// ErrNotFound is returned by Get for an unknown run id
var ErrNotFound = errors.New("run not found")

// Entry is one recorded run
type Entry struct {
	RunID        string                `cbor:"1,keyasint"`
	Script       string                `cbor:"2,keyasint"`
	ScriptDigest string                `cbor:"3,keyasint"`
	Outcome      string                `cbor:"4,keyasint"`
	AbortMessage string                `cbor:"5,keyasint,omitempty"`
	Digest       string                `cbor:"6,keyasint"`
	Time         time.Time             `cbor:"7,keyasint"`
	Data         *installer.ReturnData `cbor:"8,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("history: cbor encoder: %v", err))
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Sprintf("history: cbor decoder: %v", err))
	}
}

// ScriptDigest fingerprints script text
func ScriptDigest(script []byte) string {
	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(script))
}

// Store is an open history database
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record saves e under its run id, replacing any earlier entry with that id
func (s *Store) Record(e Entry) error {
	if e.RunID == "" {
		return errors.New("history entry without run id")
	}
	value, err := encMode.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", e.RunID, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(e.RunID), value)
	})
}

// Get returns the run with the given id
func (s *Store) Get(runID string) (*Entry, error) {
	var e *Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(runsBucket).Get([]byte(runID))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		var err error
		e, err = decode(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns every recorded run, oldest first
func (s *Store) List() ([]Entry, error) {
	entries := make([]Entry, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			e, err := decode(v)
			if err != nil {
				return fmt.Errorf("run %s: %w", k, err)
			}
			entries = append(entries, *e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

// decode copies out of v, which bbolt only guarantees inside the transaction
func decode(v []byte) (*Entry, error) {
	var e Entry
	if err := decMode.Unmarshal(append([]byte(nil), v...), &e); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &e, nil
}
