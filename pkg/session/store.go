package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/usage-monitor/pkg/logger"
)

// Bucket names.
var (
	bucketHistory = []byte("history") // Session ID -> JSON record
)

// DefaultRetention is how long closed sessions are kept before Prune
// removes them.
const DefaultRetention = 7 * 24 * time.Hour

// Store is the append-only history of past observed sessions, backed
// by BoltDB. History entries are never mutated after their EndTime is
// set; Append only inserts or refreshes the still-open current record.
type Store struct {
	db     *bolt.DB
	logger logger.Logger

	mu     sync.Mutex
	closed bool
}

// OpenStore opens (creating if needed) the history database.
//
// Parameters:
//   - path: Database file path; parent directories are created
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if the database cannot be opened
func OpenStore(path string, log logger.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketHistory)
		return createErr
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	log.Info("session history store opened", "db_path", path)

	return &Store{
		db:     db,
		logger: log,
	}, nil
}

// Append stores a session record keyed by its ID. Re-appending an
// unchanged current session is a cheap overwrite with identical bytes,
// which keeps repeated derivation passes idempotent.
func (s *Store) Append(sess ObservedSession) error {
	if sess.ID == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)

		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if putErr := b.Put([]byte(sess.ID), data); putErr != nil {
			return fmt.Errorf("failed to store session: %w", putErr)
		}

		return nil
	})
}

// List returns all stored sessions ordered by ascending StartTime.
func (s *Store) List() ([]ObservedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	sessions := make([]ObservedSession, 0, 10)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)

		return b.ForEach(func(k, v []byte) error {
			var sess ObservedSession
			if unmarshalErr := json.Unmarshal(v, &sess); unmarshalErr != nil {
				s.logger.Warn("failed to unmarshal session record",
					"id", string(k),
					"error", unmarshalErr)
				return nil // Skip invalid entries.
			}
			sessions = append(sessions, sess)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})

	return sessions, nil
}

// Closed returns only the ended history sessions, oldest first.
func (s *Store) Closed() ([]ObservedSession, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}

	return lo.Filter(sessions, func(sess ObservedSession, _ int) bool {
		return sess.EndTime != nil
	}), nil
}

// FinalizeExpired closes every open record whose window has already
// reset. A record left open by an earlier process run can never become
// current again once its ResetTime has passed, so it is finalized the
// same way Close finalizes a superseded session.
//
// Parameters:
//   - now: Wall-clock time of the check
//
// Returns:
//   - Number of records finalized
//   - Error on database failure
func (s *Store) FinalizeExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	finalized := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)

		var expired []ObservedSession
		if err := b.ForEach(func(k, v []byte) error {
			var sess ObservedSession
			if unmarshalErr := json.Unmarshal(v, &sess); unmarshalErr != nil {
				return nil
			}
			if sess.EndTime == nil && !sess.ResetTime.After(now) {
				expired = append(expired, sess)
			}
			return nil
		}); err != nil {
			return err
		}

		for _, sess := range expired {
			closed := Close(sess)
			data, err := json.Marshal(closed)
			if err != nil {
				return fmt.Errorf("failed to marshal session: %w", err)
			}
			if putErr := b.Put([]byte(closed.ID), data); putErr != nil {
				return fmt.Errorf("failed to finalize session: %w", putErr)
			}
			finalized++
		}

		return nil
	})
	if err != nil {
		return finalized, fmt.Errorf("failed to finalize expired sessions: %w", err)
	}

	if finalized > 0 {
		s.logger.Info("finalized expired sessions", "count", finalized)
	}

	return finalized, nil
}

// Prune deletes closed sessions whose EndTime is older than retention.
// Open sessions are never pruned.
func (s *Store) Prune(now time.Time, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	cutoff := now.Add(-retention)
	pruned := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)

		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var sess ObservedSession
			if unmarshalErr := json.Unmarshal(v, &sess); unmarshalErr != nil {
				return nil
			}
			if sess.EndTime != nil && sess.EndTime.Before(cutoff) {
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
			}
			return nil
		}); err != nil {
			return err
		}

		for _, key := range stale {
			if err := b.Delete(key); err != nil {
				return fmt.Errorf("failed to delete session %s: %w", key, err)
			}
			pruned++
		}

		return nil
	})
	if err != nil {
		return err
	}

	if pruned > 0 {
		s.logger.Info("pruned expired sessions",
			"count", pruned,
			"retention", retention)
	}

	return nil
}

// ExportJSON renders the history as the interchange format consumed by
// the persistence collaborator: a JSON array of session records.
func (s *Store) ExportJSON() ([]byte, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	return append(data, '\n'), nil
}

// ImportJSON loads previously exported session records, merging them
// into the store by ID.
func (s *Store) ImportJSON(data []byte) error {
	var sessions []ObservedSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("failed to parse history: %w", err)
	}

	for _, sess := range sessions {
		if sess.ID == "" {
			s.logger.Warn("skipping history record without ID")
			continue
		}
		if err := s.Append(sess); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the store and releases the database file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}

	s.logger.Info("session history store closed")
	return nil
}
