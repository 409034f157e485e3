// Package store persists aggregated simulation records in an embedded
// key-value database so past runs can be listed and re-exported.
package store

import (
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/alan-christopher/qkdsim/qkd"
)

const runPrefix = "run/"

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("record not found")

// Opts configures a Store.
type Opts struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps the database entirely in memory.
	InMemory bool
	// Logger receives diagnostic output. Optional.
	Logger *zerolog.Logger
}

// A Store holds simulation records keyed by time-ordered IDs.
type Store struct {
	db  *badger.DB
	log *zerolog.Logger
}

// An Entry pairs a stored record with its ID.
type Entry struct {
	ID     string
	Record qkd.Record
}

// Open opens, creating if necessary, the database described by opts.
func Open(opts Opts) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store directory must be set unless running in memory")
	}
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store at %q", opts.Dir)
	}
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores rec and returns its newly assigned ID. IDs sort in insertion
// order.
func (s *Store) Put(rec qkd.Record) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generating record ID")
	}
	val := qkd.MarshalRecord(rec)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id.String()), val)
	})
	if err != nil {
		return "", errors.Wrapf(err, "writing record %s", id)
	}
	s.log.Debug().Str("id", id.String()).Int("bytes", len(val)).Msg("Stored record")
	return id.String(), nil
}

// Get loads the record stored under id.
func (s *Store) Get(id string) (qkd.Record, error) {
	var rec qkd.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = qkd.UnmarshalRecord(val)
			return err
		})
	})
	if err != nil {
		return qkd.Record{}, errors.Wrapf(err, "reading record %s", id)
	}
	return rec, nil
}

// List returns every stored record, oldest first.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				rec, err := qkd.UnmarshalRecord(val)
				if err != nil {
					return errors.Wrapf(err, "decoding record %s", id)
				}
				entries = append(entries, Entry{ID: id, Record: rec})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	return entries, nil
}

// Export writes every stored record to w, oldest first, in the framing read
// by qkd.ReadRecord.
func (s *Store) Export(w io.Writer) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if err := qkd.WriteRecord(w, e.Record); err != nil {
			return i, errors.Wrapf(err, "exporting record %s", e.ID)
		}
	}
	return len(entries), nil
}

func key(id string) []byte {
	return []byte(runPrefix + id)
}
