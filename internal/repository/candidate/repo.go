// Package candidate finds discovery candidates by vector similarity over the
// profile index and maintains the indexed profile hashes.
package candidate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/profile"
)

// Index layout.
var (
	IndexName     = domain.KeyPrefix + "profiles:idx"
	profilePrefix = domain.KeyPrefix + "profile:"
)

// Profile hash fields.
const (
	fieldName        = "name"
	fieldSummary     = "summary"
	fieldTrust       = "trust"
	fieldReciprocity = "reciprocity"
	fieldUpdatedAt   = "updated_at"
	fieldVector      = db.DefaultVectorField
)

// Defaults.
const (
	DefaultLimit   = 20
	DefaultTimeout = 3 * time.Second
)

type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config sizes the index and the result set.
type Config struct {
	Dimensions int
	HNSWM      int // 0 uses a FLAT index
	Limit      int
	Timeout    time.Duration
	Weights    match.Weights
}

// Repo implements usecase/discovery.CandidateFinder and usecase/content.ProfileRepository.
type Repo struct {
	store    store
	query    domain.Embedder
	document domain.Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a candidate repository. query embeds search terms and document
// embeds profiles; they may be the same embedder.
func New(s store, query, document domain.Embedder, cfg Config, logger *zap.Logger) *Repo {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Weights == (match.Weights{}) {
		cfg.Weights = match.DefaultWeights()
	}
	return &Repo{store: s, query: query, document: document, cfg: cfg, logger: logger}
}

// IndexDefinition returns the profile index schema.
func (r *Repo) IndexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(IndexName).
		Prefix(profilePrefix).
		Text(fieldName).
		Numeric(fieldTrust).
		Numeric(fieldReciprocity)
	if r.cfg.HNSWM > 0 {
		b = b.VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM)
	} else {
		b = b.VectorFlat(fieldVector, r.cfg.Dimensions, db.DistanceCosine)
	}
	return b.Build()
}

// EnsureIndex creates the profile index if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check profile index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := r.IndexDefinition()
	if err != nil {
		return fmt.Errorf("build profile index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create profile index: %w", err)
	}
	r.logger.Info("Profile index created", zap.String("index", IndexName), zap.Int("dimensions", r.cfg.Dimensions))
	return nil
}

// FindCandidates embeds the terms and returns the nearest profiles, excluding
// the owner, scored but not ranked. With no terms the owner's own profile
// vector is the query; an owner without a profile then gets no candidates.
func (r *Repo) FindCandidates(ctx context.Context, ownerID string, terms []string) ([]match.Candidate, error) {
	vec, err := r.queryVector(ctx, ownerID, terms)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		VectorField:  fieldVector,
		Vector:       vec,
		K:            r.cfg.Limit + 1, // the owner may be among the hits
		ReturnFields: []string{fieldName, fieldSummary, fieldTrust, fieldReciprocity},
	})
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w: %w", domain.ErrTransientDependency, err)
	}

	out := make([]match.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, profilePrefix)
		if id == ownerID {
			continue
		}
		v := match.Score(e.Score, r.component(e, fieldTrust), r.component(e, fieldReciprocity))
		out = append(out, match.NewCandidate(id, e.Fields[fieldName], e.Fields[fieldSummary], v, r.cfg.Weights))
		if len(out) == r.cfg.Limit {
			break
		}
	}
	return out, nil
}

func (r *Repo) queryVector(ctx context.Context, ownerID string, terms []string) ([]float32, error) {
	if text := strings.Join(terms, " "); strings.TrimSpace(text) != "" {
		res, err := r.query.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed terms: %w", err)
		}
		return res.Embedding, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	fields, err := r.store.HGetAll(ctx, profilePrefix+ownerID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load owner profile: %w: %w", domain.ErrTransientDependency, err)
	}
	vec, err := db.DecodeVector(fields[fieldVector])
	if err != nil || len(vec) == 0 {
		return nil, nil //nolint:nilerr // a profile without a vector cannot seed a search
	}
	return vec, nil
}

// component parses a stored score component; missing or malformed values are neutral.
func (r *Repo) component(e db.SearchEntry, field string) float64 {
	raw, ok := e.Fields[field]
	if !ok {
		return match.Neutral
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.logger.Debug("Malformed score component", zap.String("key", e.Key), zap.String("field", field))
		return match.Neutral
	}
	return v
}

// UpsertProfile embeds the profile document and writes the indexed hash.
func (r *Repo) UpsertProfile(ctx context.Context, p profile.Profile) error {
	res, err := r.document.Embed(ctx, p.Document())
	if err != nil {
		return fmt.Errorf("embed profile: %w", err)
	}
	if r.cfg.Dimensions > 0 && len(res.Embedding) != r.cfg.Dimensions {
		return fmt.Errorf("profile vector has %d dimensions, index expects %d: %w",
			len(res.Embedding), r.cfg.Dimensions, domain.ErrEmbeddingProviderError)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	err = r.store.HSet(ctx, profilePrefix+p.ID(), map[string]string{
		fieldName:        p.Name(),
		fieldSummary:     p.Summary(),
		fieldTrust:       strconv.FormatFloat(p.Trust(), 'f', -1, 64),
		fieldReciprocity: strconv.FormatFloat(p.Reciprocity(), 'f', -1, 64),
		fieldUpdatedAt:   strconv.FormatInt(p.UpdatedAt().Unix(), 10),
		fieldVector:      db.EncodeVector(res.Embedding),
	})
	if err != nil {
		return fmt.Errorf("save profile: %w: %w", domain.ErrTransientDependency, err)
	}
	return nil
}

// GetProfile loads a profile without its vector.
func (r *Repo) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	fields, err := r.store.HGetAll(ctx, profilePrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return profile.Profile{}, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return profile.Profile{}, fmt.Errorf("get profile: %w: %w", domain.ErrTransientDependency, err)
	}

	trust, _ := strconv.ParseFloat(fields[fieldTrust], 64)
	reciprocity, _ := strconv.ParseFloat(fields[fieldReciprocity], 64)
	updated, _ := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	return profile.Reconstruct(id, fields[fieldName], fields[fieldSummary], trust, reciprocity,
		time.Unix(updated, 0).UTC()), nil
}
