package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"vibe/internal/types"
)

const maxRecentProjects = 10

var (
	bucketPrefs   = []byte("prefs")
	bucketRecents = []byte("recent_projects")

	keySelectedModel = []byte("selected_model")
)

// StateStore persists small client state (last-selected model, recently
// opened projects) in a local bbolt database.
type StateStore struct {
	db *bolt.DB
}

func Open(path string) (*StateStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPrefs, bucketRecents} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SelectedModel returns the last model the user picked, or "" when unset.
func (s *StateStore) SelectedModel(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var model string
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(bucketPrefs).Get(keySelectedModel); value != nil {
			model = string(value)
		}
		return nil
	})
	return model, err
}

func (s *StateStore) SetSelectedModel(ctx context.Context, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put(keySelectedModel, []byte(strings.TrimSpace(model)))
	})
}

// TouchProject records that a project was opened now, trimming the recents
// list to its cap.
func (s *StateStore) TouchProject(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("project id is required")
	}
	entry := types.RecentProject{ID: id, Name: name, LastOpened: time.Now().UTC()}
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRecents)
		if err := bucket.Put([]byte(id), value); err != nil {
			return err
		}
		return trimRecents(bucket)
	})
}

// RecentProjects lists remembered projects, most recently opened first.
func (s *StateStore) RecentProjects(ctx context.Context) ([]types.RecentProject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.RecentProject
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecents).ForEach(func(_, value []byte) error {
			var entry types.RecentProject
			if err := json.Unmarshal(value, &entry); err != nil {
				// Skip corrupt entries rather than failing the listing.
				return nil
			}
			out = append(out, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastOpened.After(out[j].LastOpened) })
	return out, nil
}

// ForgetProject removes a project from the recents list.
func (s *StateStore) ForgetProject(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecents).Delete([]byte(id))
	})
}

func trimRecents(bucket *bolt.Bucket) error {
	var entries []types.RecentProject
	err := bucket.ForEach(func(_, value []byte) error {
		var entry types.RecentProject
		if err := json.Unmarshal(value, &entry); err != nil {
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return err
	}
	if len(entries) <= maxRecentProjects {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LastOpened.After(entries[j].LastOpened) })
	for _, stale := range entries[maxRecentProjects:] {
		if err := bucket.Delete([]byte(stale.ID)); err != nil {
			return err
		}
	}
	return nil
}
