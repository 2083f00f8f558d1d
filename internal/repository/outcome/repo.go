// Package outcome persists outcome records, one key per introduction.
package outcome

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

var keyPrefix = domain.KeyPrefix + "outcome:intro:"

// DefaultTimeout bounds every store call.
const DefaultTimeout = 2 * time.Second

// store is the consumer interface for outcome records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/outcome.Repository.
type Repo struct {
	store   store
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an outcome repository. timeout <= 0 uses DefaultTimeout.
func New(s store, timeout time.Duration, logger *zap.Logger) *Repo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repo{store: s, timeout: timeout, logger: logger}
}

// Create inserts the record only if its introduction has none yet. The
// conditional write is the only uniqueness check that counts: of two racing
// creators exactly one succeeds and the other gets ErrConflict.
func (r *Repo) Create(ctx context.Context, rec domout.Record) error {
	data, err := encodeRecord(&rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.store.SetNX(ctx, recordKey(rec.IntroductionID()), data, 0)
	if err != nil {
		return transient("create outcome", err)
	}
	if !ok {
		return fmt.Errorf("outcome for introduction %s: %w", rec.IntroductionID(), domain.ErrConflict)
	}
	return nil
}

// Get loads the record for an introduction.
func (r *Repo) Get(ctx context.Context, introductionID string) (domout.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.store.Get(ctx, recordKey(introductionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domout.Record{}, fmt.Errorf("outcome for introduction %s: %w", introductionID, domain.ErrNotFound)
		}
		return domout.Record{}, transient("get outcome", err)
	}
	return decodeRecord(data)
}

// Update replaces prev with next. It fails with ErrConflict when the stored
// record is no longer prev, so a writer working from a stale read never
// overwrites a newer update or an erasure. It never creates a record.
func (r *Repo) Update(ctx context.Context, prev, next domout.Record) error {
	want, err := encodeRecord(&prev)
	if err != nil {
		return err
	}
	data, err := encodeRecord(&next)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	key := recordKey(next.IntroductionID())
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("outcome for introduction %s: %w", next.IntroductionID(), domain.ErrNotFound)
		}
		return transient("get outcome", err)
	}

	// Stored bytes are compared in canonical form: prev went through the same decoder.
	cur, err := decodeRecord(raw)
	if err != nil {
		return err
	}
	canon, err := encodeRecord(&cur)
	if err != nil {
		return err
	}
	if !bytes.Equal(canon, want) {
		return fmt.Errorf("outcome for introduction %s changed concurrently: %w", next.IntroductionID(), domain.ErrConflict)
	}

	ok, err := r.store.CompareAndSwap(ctx, key, raw, data)
	if err != nil {
		return transient("update outcome", err)
	}
	if !ok {
		return fmt.Errorf("outcome for introduction %s changed concurrently: %w", next.IntroductionID(), domain.ErrConflict)
	}
	return nil
}

// List returns every record. Undecodable rows are logged and skipped.
func (r *Repo) List(ctx context.Context) ([]domout.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, transient("scan outcomes", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, transient("load outcomes", err)
	}

	out := make([]domout.Record, 0, len(rows))
	for i, data := range rows {
		if data == nil {
			continue // deleted between SCAN and GET
		}
		rec, err := decodeRecord(data)
		if err != nil {
			r.logger.Warn("Skipping unreadable outcome record", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordKey(introductionID string) string { return keyPrefix + introductionID }

func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransientDependency, err)
}
