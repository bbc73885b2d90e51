// Package redisstore keeps two-factor records in Redis as JSON strings.
//
// Read-modify-write runs as an optimistic WATCH/MULTI transaction on the
// record key. A transaction that loses a race is retried from a fresh read,
// up to a bounded number of attempts.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

// ErrConflict is joined with ErrUnavailable when retries run out.
var ErrConflict = errors.New("redisstore: too many concurrent updates")

// Store implements twofactor.Storage on a Redis client.
type Store struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
	backoff    time.Duration
}

var _ twofactor.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix sets the prefix of record keys. Default "twofactor:record:".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMaxRetries bounds attempts per mutation when transactions collide.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// New panics on a nil client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	if client == nil {
		panic("redisstore: client cannot be nil")
	}
	s := &Store{
		client:     client,
		prefix:     "twofactor:record:",
		maxRetries: 20,
		backoff:    2 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type document struct {
	AccountID            string     `json:"account_id"`
	EncryptedSecret      string     `json:"encrypted_secret"`
	EncryptedBackupCodes string     `json:"encrypted_backup_codes"`
	Enabled              bool       `json:"is_enabled"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Version              int64      `json:"version"`
}

func toDocument(r twofactor.Record) document {
	return document(r)
}

func (d document) record() twofactor.Record {
	return twofactor.Record(d)
}

// getter is satisfied by both the client and a watched *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) key(accountID string) string {
	return s.prefix + accountID
}

func (s *Store) Find(ctx context.Context, accountID string) (twofactor.Record, error) {
	rec, _, err := s.load(ctx, s.client, accountID)
	return rec, err
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
	n, err := s.client.Del(ctx, s.key(accountID)).Result()
	if err != nil {
		return errors.Join(twofactor.ErrUnavailable, err)
	}
	if n == 0 {
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
	key := s.key(accountID)

	for attempt := range s.maxRetries {
		// Set when the error comes from our own code rather than from Redis.
		var final error

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			rec, exists, err := s.load(ctx, tx, accountID)
			switch {
			case errors.Is(err, twofactor.ErrRecordNotFound):
				if mode != writeUpsert {
					final = err
					return err
				}
				rec = twofactor.Record{AccountID: accountID}
			case err != nil:
				final = err
				return err
			}

			prev := rec.Version
			if err := fn(&rec, exists); err != nil {
				final = err
				return err
			}

			if mode == writeDelete {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			rec.AccountID = accountID
			rec.Version = prev + 1

			payload, err := json.Marshal(toDocument(rec))
			if err != nil {
				final = errors.Join(twofactor.ErrUnavailable, err)
				return final
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			return err
		}, key)

		switch {
		case final != nil:
			return final
		case err == nil:
			return nil
		case !errors.Is(err, redis.TxFailedErr):
			return errors.Join(twofactor.ErrUnavailable, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * s.backoff):
		}
	}

	return errors.Join(twofactor.ErrUnavailable, ErrConflict)
}

func (s *Store) load(ctx context.Context, c getter, accountID string) (twofactor.Record, bool, error) {
	raw, err := c.Get(ctx, s.key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return twofactor.Record{}, false, twofactor.ErrRecordNotFound
	}
	if err != nil {
		return twofactor.Record{}, false, errors.Join(twofactor.ErrUnavailable, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return twofactor.Record{}, false, errors.Join(twofactor.ErrUnavailable, err)
	}
	return doc.record(), true, nil
}
