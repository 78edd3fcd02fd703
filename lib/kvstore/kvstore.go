// Package kvstore wraps badger behind the whole-object snapshot semantics
// the tracker relies on: values are read and written as complete JSON
// documents keyed by string, there is no partial update.
package kvstore

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/kvstore")

var ErrKeyNotFound = badger.ErrKeyNotFound

type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory is for tests and one-shot CLI invocations that should not
// leave state behind.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the value at key into out. Returns ErrKeyNotFound when the
// key has never been written; callers substitute their zero/default value.
func (s *Store) Get(ctx context.Context, key string, out any) error {
	_, span := tracer.Start(ctx, "get")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	tx := s.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return ErrKeyNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy stored item")
		return err
	}

	err = json.Unmarshal(serialized, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize stored item")
		return err
	}
	return nil
}

// Set overwrites the value at key wholesale.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	_, span := tracer.Start(ctx, "set")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	serialized, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize value")
		return err
	}

	err = s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(key), serialized)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	_, span := tracer.Start(ctx, "delete")
	defer span.End()

	return s.db.Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			err := tx.Delete([]byte(key))
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
}

// BytesInUse reports the on-disk footprint (LSM tree + value log), used
// only for the diagnostics surface.
func (s *Store) BytesInUse() int64 {
	lsm, vlog := s.db.Size()
	return lsm + vlog
}
