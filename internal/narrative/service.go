// Package narrative is the application service for a series: it validates
// and persists entities, compiles generation contexts and reviews content
// against canon.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/canon"
	"github.com/starford/saga/internal/compiler"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/store"
)

// Event describes a committed change, for SSE fan-out.
type Event struct {
	Kind     string // series, book, character, world_element, arc, canon_rule, override
	Action   string // created, updated, archived, deactivated, transitioned, recorded
	SeriesID string
	EntityID string
}

// Event kinds.
const (
	KindSeries       = "series"
	KindBook         = "book"
	KindCharacter    = "character"
	KindWorldElement = "world_element"
	KindArc          = "arc"
	KindCanonRule    = "canon_rule"
	KindOverride     = "override"
)

// Service coordinates the entity store, the context compiler and the canon
// evaluator. All calls take the series explicitly; the service holds no
// notion of a current series or book.
type Service struct {
	repo      store.Repository
	compiler  *compiler.Compiler
	evaluator *canon.Evaluator
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	onEvent   func(Event)
	locks     seriesLocks
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithEventHandler registers a callback invoked after every committed write.
func WithEventHandler(fn func(Event)) Option {
	return func(s *Service) { s.onEvent = fn }
}

// NewService creates a new narrative service.
func NewService(repo store.Repository, evaluator *canon.Evaluator, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		compiler:  compiler.New(repo),
		evaluator: evaluator,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
		onEvent:   func(Event) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emit(kind, action, seriesID, entityID string) {
	s.onEvent(Event{Kind: kind, Action: action, SeriesID: seriesID, EntityID: entityID})
}

func (s *Service) stamp() time.Time {
	return s.now().UTC()
}

// writable loads a series for a write and rejects archived ones. The caller
// must hold the series lock.
func (s *Service) writable(ctx context.Context, seriesID string) (*models.Series, error) {
	series, err := s.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, seriesErr(err)
	}
	if series.Archived {
		return nil, fmt.Errorf("series %s is archived: %w", seriesID, apperr.ErrConflict)
	}
	return series, nil
}

// requireSeries returns apperr.ErrSeriesNotFound for unknown series.
func (s *Service) requireSeries(ctx context.Context, seriesID string) error {
	_, err := s.repo.GetSeries(ctx, seriesID)
	return seriesErr(err)
}

func seriesErr(err error) error {
	if errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrSeriesNotFound) {
		return apperr.ErrSeriesNotFound
	}
	return err
}

// ownedBy returns apperr.ErrNotFound when an entity belongs to another series.
func ownedBy(entitySeries, seriesID string) error {
	if entitySeries != seriesID {
		return apperr.ErrNotFound
	}
	return nil
}

// checkVersion enforces an If-Match style precondition. Zero skips the check.
func checkVersion(expected, current int) error {
	if expected != 0 && expected != current {
		return fmt.Errorf("version %d is stale (current %d): %w", expected, current, apperr.ErrConflict)
	}
	return nil
}

type validatable interface {
	Validate() error
}

func validate(v validatable) error {
	return apperr.FromValidation(v.Validate())
}

// seriesLocks serializes writes per series.
type seriesLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *seriesLocks) lock(seriesID string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*lockEntry)
	}
	e, ok := l.m[seriesID]
	if !ok {
		e = &lockEntry{}
		l.m[seriesID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, seriesID)
		}
		l.mu.Unlock()
	}
}
