package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"tia/internal/analysis"
	tiaerrors "tia/internal/errors"
	"tia/internal/logging"
)

// Store is the storage port used by the engine.
type Store struct {
	backend Backend
	cache   *lru.Cache[string, *analysis.TestImpactAnalysis]
	logger  *logging.Logger
}

// NewStore wraps backend. A positive opts.CacheSize keeps that many decoded
// analyses in memory, keyed by id.
func NewStore(backend Backend, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	s := &Store{backend: backend, logger: logger}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *analysis.TestImpactAnalysis](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create analysis cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// FindAnalysis loads the analysis stored under id. A missing record returns
// an ANALYSIS_NOT_FOUND error wrapping ErrNotFound. Undecodable bytes return
// MALFORMED_RECORD.
func (s *Store) FindAnalysis(ctx context.Context, id string) (*analysis.TestImpactAnalysis, error) {
	if s.cache != nil {
		if tia, ok := s.cache.Get(id); ok {
			return tia, nil
		}
	}

	data, err := s.backend.Get(ctx, KindAnalysis, id)
	if errors.Is(err, ErrNotFound) {
		return nil, tiaerrors.New(tiaerrors.AnalysisNotFound, "analysis "+id, err)
	}
	if err != nil {
		return nil, unavailable("read analysis "+id, err)
	}

	tia, err := analysis.Decode(data)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(id, tia)
	}
	return tia, nil
}

// SaveAnalysis persists tia under its id and returns the id. Saving the
// same content twice writes the same record.
func (s *Store) SaveAnalysis(ctx context.Context, tia *analysis.TestImpactAnalysis) (string, error) {
	if !tia.Available() {
		return "", tiaerrors.Newf(tiaerrors.InvariantViolation, "cannot save a missing analysis")
	}
	id := tia.ID()
	if err := s.backend.Put(ctx, KindAnalysis, id, analysis.Encode(tia)); err != nil {
		return "", unavailable("write analysis "+id, err)
	}
	if s.cache != nil {
		s.cache.Add(id, tia)
	}
	s.logger.Debug("Saved analysis", map[string]interface{}{
		"id":    id,
		"tests": len(tia.Tests()),
		"units": tia.Registry().Len(),
	})
	return id, nil
}

// FindRawCoverage returns the uncompressed blob stored under ref.
func (s *Store) FindRawCoverage(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.backend.Get(ctx, KindExecution, ref)
	if err != nil {
		return nil, unavailable("read execution data "+ref, err)
	}
	raw, err := decompress(data)
	if err != nil {
		return nil, tiaerrors.New(tiaerrors.MalformedRecord, "execution data "+ref, err)
	}
	return raw, nil
}

// SaveRawCoverage stores blob and returns its content-derived reference.
func (s *Store) SaveRawCoverage(ctx context.Context, blob []byte) (string, error) {
	ref := ExecutionRef(blob)
	if err := s.backend.Put(ctx, KindExecution, ref, compress(blob)); err != nil {
		return "", unavailable("write execution data "+ref, err)
	}
	return ref, nil
}

// ReadPointer returns the id named by the version pointer. An unset pointer
// returns "" and no error.
func (s *Store) ReadPointer(ctx context.Context) (string, error) {
	data, err := s.backend.Get(ctx, KindPointer, pointerKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", unavailable("read version pointer", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WritePointer points the version pointer at id. Callers write the analysis
// body first.
func (s *Store) WritePointer(ctx context.Context, id string) error {
	if err := s.backend.Put(ctx, KindPointer, pointerKey, []byte(id+"\n")); err != nil {
		return unavailable("write version pointer", err)
	}
	return nil
}

// PruneResult counts what Prune removed.
type PruneResult struct {
	Analyses   int `json:"analyses" yaml:"analyses" toml:"analyses"`
	Executions int `json:"executions" yaml:"executions" toml:"executions"`
}

// Prune deletes every analysis other than keep and every execution blob
// that keep does not reference.
func (s *Store) Prune(ctx context.Context, keep *analysis.TestImpactAnalysis) (PruneResult, error) {
	var result PruneResult
	if !keep.Available() {
		return result, nil
	}

	ids, err := s.backend.List(ctx, KindAnalysis)
	if err != nil {
		return result, unavailable("list analyses", err)
	}
	for _, id := range ids {
		if id == keep.ID() {
			continue
		}
		if err := s.backend.Delete(ctx, KindAnalysis, id); err != nil && !errors.Is(err, ErrNotFound) {
			return result, unavailable("delete analysis "+id, err)
		}
		if s.cache != nil {
			s.cache.Remove(id)
		}
		result.Analyses++
	}

	referenced := keep.ExecutionRefs()
	refs, err := s.backend.List(ctx, KindExecution)
	if err != nil {
		return result, unavailable("list execution data", err)
	}
	for _, ref := range refs {
		if referenced[ref] {
			continue
		}
		if err := s.backend.Delete(ctx, KindExecution, ref); err != nil && !errors.Is(err, ErrNotFound) {
			return result, unavailable("delete execution data "+ref, err)
		}
		result.Executions++
	}

	if result.Analyses > 0 || result.Executions > 0 {
		s.logger.Info("Pruned storage", map[string]interface{}{
			"analyses":   result.Analyses,
			"executions": result.Executions,
			"kept":       keep.ID(),
		})
	}
	return result, nil
}
