// Package mongostore keeps two-factor records in a MongoDB collection keyed
// by account ID.
//
// Each document carries a version. Writes are conditional on the version
// that was read, and a write that finds the version moved is retried from a
// fresh read, up to a bounded number of attempts.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

// DefaultCollection is used by NewFromDatabase.
const DefaultCollection = "two_factor_records"

// ErrConflict is joined with ErrUnavailable when retries run out.
var ErrConflict = errors.New("mongostore: too many concurrent updates")

// Store implements twofactor.Storage on a MongoDB collection.
type Store struct {
	coll       *mongo.Collection
	maxRetries int
	backoff    time.Duration
}

var _ twofactor.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxRetries bounds attempts per mutation when writers collide.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// New uses the collection as is; the _id index is all the store needs.
func New(coll *mongo.Collection, opts ...Option) *Store {
	if coll == nil {
		panic("mongostore: collection cannot be nil")
	}
	s := &Store{
		coll:       coll,
		maxRetries: 20,
		backoff:    2 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromDatabase uses DefaultCollection in db.
func NewFromDatabase(db *mongo.Database, opts ...Option) *Store {
	return New(db.Collection(DefaultCollection), opts...)
}

type document struct {
	AccountID            string     `bson:"_id"`
	EncryptedSecret      string     `bson:"encrypted_secret"`
	EncryptedBackupCodes string     `bson:"encrypted_backup_codes"`
	Enabled              bool       `bson:"is_enabled"`
	LastUsedAt           *time.Time `bson:"last_used_at,omitempty"`
	CreatedAt            time.Time  `bson:"created_at"`
	UpdatedAt            time.Time  `bson:"updated_at"`
	Version              int64      `bson:"version"`
}

func (d document) record() twofactor.Record {
	rec := twofactor.Record(d)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if rec.LastUsedAt != nil {
		t := rec.LastUsedAt.UTC()
		rec.LastUsedAt = &t
	}
	return rec
}

func (s *Store) Find(ctx context.Context, accountID string) (twofactor.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: accountID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return twofactor.Record{}, twofactor.ErrRecordNotFound
	}
	if err != nil {
		return twofactor.Record{}, errors.Join(twofactor.ErrUnavailable, err)
	}
	return doc.record(), nil
}

func (s *Store) Upsert(ctx context.Context, accountID string, fn func(rec *twofactor.Record, exists bool) error) error {
	return s.mutate(ctx, accountID, writeUpsert, fn)
}

func (s *Store) Update(ctx context.Context, accountID string, fn func(rec *twofactor.Record) error) error {
	return s.mutate(ctx, accountID, writeUpdate, func(rec *twofactor.Record, _ bool) error {
		return fn(rec)
	})
}

func (s *Store) DeleteIf(ctx context.Context, accountID string, fn func(rec *twofactor.Record) error) error {
	return s.mutate(ctx, accountID, writeDelete, func(rec *twofactor.Record, _ bool) error {
		return fn(rec)
	})
}

func (s *Store) Delete(ctx context.Context, accountID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: accountID}})
	if err != nil {
		return errors.Join(twofactor.ErrUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return twofactor.ErrRecordNotFound
	}
	return nil
}

type writeMode int

const (
	writeUpsert writeMode = iota
	writeUpdate
	writeDelete
)

func (s *Store) mutate(ctx context.Context, accountID string, mode writeMode, fn func(rec *twofactor.Record, exists bool) error) error {
	for attempt := range s.maxRetries {
		rec, err := s.Find(ctx, accountID)
		exists := err == nil
		switch {
		case errors.Is(err, twofactor.ErrRecordNotFound):
			if mode != writeUpsert {
				return err
			}
			rec = twofactor.Record{AccountID: accountID}
		case err != nil:
			return err
		}

		prev := rec.Version
		if err := fn(&rec, exists); err != nil {
			return err
		}
		rec.AccountID = accountID
		rec.Version = prev + 1

		var won bool
		if mode == writeDelete {
			won, err = s.remove(ctx, accountID, prev)
		} else {
			won, err = s.write(ctx, rec, exists, prev)
		}
		if err != nil {
			return err
		}
		if won {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * s.backoff):
		}
	}

	return errors.Join(twofactor.ErrUnavailable, ErrConflict)
}

// write reports false when another writer got there first.
func (s *Store) write(ctx context.Context, rec twofactor.Record, exists bool, prevVersion int64) (bool, error) {
	doc := document(rec)

	if !exists {
		_, err := s.coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		if err != nil {
			return false, errors.Join(twofactor.ErrUnavailable, err)
		}
		return true, nil
	}

	filter := bson.D{
		{Key: "_id", Value: rec.AccountID},
		{Key: "version", Value: prevVersion},
	}
	res, err := s.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return false, errors.Join(twofactor.ErrUnavailable, err)
	}
	return res.MatchedCount == 1, nil
}

// remove deletes the record only if nobody wrote it since it was read.
func (s *Store) remove(ctx context.Context, accountID string, prevVersion int64) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: accountID},
		{Key: "version", Value: prevVersion},
	})
	if err != nil {
		return false, errors.Join(twofactor.ErrUnavailable, err)
	}
	return res.DeletedCount == 1, nil
}
