package twofactor

import (
	"context"
	"sync"
)

type accountLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryStorage is an in-process Storage with one lock per account.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string]Record
	locks   map[string]*accountLock
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]Record),
		locks:   make(map[string]*accountLock),
	}
}

func (s *MemoryStorage) Find(ctx context.Context, accountID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[accountID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStorage) Upsert(ctx context.Context, accountID string, fn func(rec *Record, exists bool) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lock(accountID)
	defer unlock()

	current, exists := s.get(accountID)
	if !exists {
		current = Record{AccountID: accountID}
	}

	work := current.Clone()
	if err := fn(&work, exists); err != nil {
		return err
	}
	s.put(accountID, work, current.Version)

	return nil
}

func (s *MemoryStorage) Update(ctx context.Context, accountID string, fn func(rec *Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lock(accountID)
	defer unlock()

	current, exists := s.get(accountID)
	if !exists {
		return ErrRecordNotFound
	}

	work := current.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.put(accountID, work, current.Version)

	return nil
}

func (s *MemoryStorage) DeleteIf(ctx context.Context, accountID string, fn func(rec *Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lock(accountID)
	defer unlock()

	current, exists := s.get(accountID)
	if !exists {
		return ErrRecordNotFound
	}
	if err := fn(&current); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.records, accountID)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lock(accountID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[accountID]; !ok {
		return ErrRecordNotFound
	}
	delete(s.records, accountID)

	return nil
}

func (s *MemoryStorage) get(accountID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[accountID]
	return rec.Clone(), ok
}

func (s *MemoryStorage) put(accountID string, rec Record, prevVersion int64) {
	rec.AccountID = accountID
	rec.Version = prevVersion + 1

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[accountID] = rec
}

// lock serializes callers for one account and releases the lock entry once
// nobody holds or waits for it.
func (s *MemoryStorage) lock(accountID string) func() {
	s.mu.Lock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &accountLock{}
		s.locks[accountID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, accountID)
		}
		s.mu.Unlock()
	}
}
