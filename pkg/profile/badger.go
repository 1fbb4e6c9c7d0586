package profile

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Key prefixes. Profiles live under "profile:<id>", links under
// "link:<meeting>:<meeting speaker>", so a meeting's links share a prefix.
const (
	profilePrefix = "profile:"
	linkPrefix    = "link:"
)

// Badger is a Store backed by BadgerDB with msgpack-encoded records.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for testing
	// with a real badger engine.
	InMemory bool

	// Logger sets the badger logger. If nil, badger output is silenced.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed profile store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("profile: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(nil)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("profile: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

var _ Store = (*Badger)(nil)

func profileKey(id uuid.UUID) []byte {
	return []byte(profilePrefix + id.String())
}

func linkKey(meetingID uuid.UUID, meetingSpeakerID string) []byte {
	return []byte(linkPrefix + meetingID.String() + ":" + meetingSpeakerID)
}

func (b *Badger) ActiveProfiles(_ context.Context) ([]*Profile, error) {
	var out []*Profile
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(profilePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p Profile
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &p)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) SaveProfile(_ context.Context, p *Profile) error {
	val, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: encode %s: %w", p.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(p.ID), val)
	})
}

func (b *Badger) SaveLink(_ context.Context, l *Link) error {
	val, err := msgpack.Marshal(l)
	if err != nil {
		return fmt.Errorf("profile: encode link %s/%s: %w", l.MeetingID, l.MeetingSpeakerID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(linkKey(l.MeetingID, l.MeetingSpeakerID), val)
	})
}

func (b *Badger) Links(_ context.Context, meetingID uuid.UUID) ([]*Link, error) {
	var out []*Link
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(linkPrefix + meetingID.String() + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var l Link
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &l)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, &l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single profile by ID.
func (b *Badger) Get(_ context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
