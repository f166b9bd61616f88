// Package bolt keeps save slots in a bbolt database.
package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/nathoo/taleforge/engine/save"
)

const slotsBucket = "slots"

var _ save.SlotStore = (*Slots)(nil)

// Slots stores saves of one story under a per-story bucket, so several
// stories can share a database file.
type Slots struct {
	db    *bbolt.DB
	story []byte
}

// Open opens the database at path and prepares the bucket for story.
func Open(path, story string) (*Slots, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if strings.TrimSpace(story) == "" {
		return nil, fmt.Errorf("story name is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open slot db: %w", err)
	}
	s := &Slots{db: db, story: []byte(story)}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Slots) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Slots) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(slotsBucket))
		if err != nil {
			return fmt.Errorf("create slots bucket: %w", err)
		}
		if _, err := root.CreateBucketIfNotExists(s.story); err != nil {
			return fmt.Errorf("create story bucket: %w", err)
		}
		return nil
	})
}

func (s *Slots) bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	root := tx.Bucket([]byte(slotsBucket))
	if root == nil {
		return nil, fmt.Errorf("slots bucket is missing")
	}
	b := root.Bucket(s.story)
	if b == nil {
		return nil, fmt.Errorf("story bucket %q is missing", s.story)
	}
	return b, nil
}

// Put stores data under name, replacing any earlier save.
func (s *Slots) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := save.ValidSlot(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), data)
	})
}

// Get returns the save stored under name.
func (s *Slots) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := save.ValidSlot(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("slot %s: %w", name, save.ErrNoSlot)
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// List returns the slot names in key order.
func (s *Slots) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Delete removes a slot.
func (s *Slots) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := save.ValidSlot(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("slot %s: %w", name, save.ErrNoSlot)
		}
		return b.Delete([]byte(name))
	})
}
