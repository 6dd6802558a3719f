package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v2"

	types "github.com/underlay/styx-client/types"
)

// ErrNotFound means no graph is stored under the requested origin
var ErrNotFound = errors.New("graph not found")

var graphPrefix = []byte("g/")

// Store keeps every uploaded graph in badger under its origin: the
// resource it was PUT to, or the default graph for the service root.
// Values are JSON arrays of wire quads.
type Store struct {
	db *badger.DB
}

// source is one stored quad and the origin it was uploaded to
type source struct {
	origin types.Term
	quad   types.Quad
}

// OpenStore opens a badger database at path; an empty path keeps
// everything in memory
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.WithLogger(badgerLogger{logger.With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

func originKey(origin types.Term) ([]byte, error) {
	switch o := origin.(type) {
	case nil, types.DefaultGraph:
		return graphPrefix, nil
	case types.Resource:
		return append(append([]byte{}, graphPrefix...), o.ID...), nil
	}
	return nil, &types.ValidationError{Field: "origin", Reason: origin.Kind().String() + " cannot name a graph"}
}

func parseOriginKey(key []byte) types.Term {
	id := string(key[len(graphPrefix):])
	if id == "" {
		return types.Default
	}
	return types.NewResource(id)
}

// Set replaces the graph stored under origin
func (s *Store) Set(origin types.Term, quads []types.Quad) error {
	key, err := originKey(origin)
	if err != nil {
		return err
	}

	value, err := json.Marshal(types.QuadsToWire(quads))
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Get returns the graph stored under origin
func (s *Store) Get(origin types.Term) ([]types.Quad, error) {
	key, err := originKey(origin)
	if err != nil {
		return nil, err
	}

	var quads []types.Quad
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		return item.Value(func(val []byte) (err error) {
			quads, err = decodeGraph(val)
			return
		})
	})

	return quads, err
}

// Delete removes the graph stored under origin
func (s *Store) Delete(origin types.Term) error {
	key, err := originKey(origin)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// scan reads every stored quad along with its origin
func (s *Store) scan() ([]source, error) {
	sources := []source{}
	err := s.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		for iter.Seek(graphPrefix); iter.ValidForPrefix(graphPrefix); iter.Next() {
			item := iter.Item()
			origin := parseOriginKey(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				quads, err := decodeGraph(val)
				if err != nil {
					return err
				}
				for _, q := range quads {
					sources = append(sources, source{origin, q})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return sources, err
}

func decodeGraph(val []byte) ([]types.Quad, error) {
	var wire []types.WireQuad
	if err := json.Unmarshal(val, &wire); err != nil {
		return nil, err
	}
	return types.QuadsFromWire(wire)
}

// badgerLogger routes badger's printf-style logging to slog
type badgerLogger struct{ logger *slog.Logger }

func format(f string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(f, args...))
}

func (l badgerLogger) Errorf(f string, args ...interface{})   { l.logger.Error(format(f, args)) }
func (l badgerLogger) Warningf(f string, args ...interface{}) { l.logger.Warn(format(f, args)) }
func (l badgerLogger) Infof(f string, args ...interface{})    { l.logger.Debug(format(f, args)) }
func (l badgerLogger) Debugf(f string, args ...interface{})   { l.logger.Debug(format(f, args)) }
