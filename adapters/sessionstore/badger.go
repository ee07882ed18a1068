package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// currentKey is where the single device-local session identity lives.
var currentKey = []byte("session/current")

// BadgerStore persists the session identity in a local BadgerDB so the same
// conversation is resumed across restarts.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the store at dir.
func OpenBadger(dir string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger.Sugar()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening session store at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Load returns the persisted session identity.
func (s *BadgerStore) Load(ctx context.Context) (*entities.Session, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(currentKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repositories.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var session entities.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decoding stored session: %w", err)
	}
	return &session, nil
}

// Save persists the session identity, replacing any previous one.
func (s *BadgerStore) Save(ctx context.Context, session *entities.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid session: %w", err)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(currentKey, raw)
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's own logging through zap, dropping the chatty
// info and debug levels.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.sugar.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.sugar.Warnf(f, v...) }
func (l badgerLogger) Infof(string, ...interface{})        {}
func (l badgerLogger) Debugf(string, ...interface{})       {}
