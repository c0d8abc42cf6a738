package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/util"
)

var (
	// ErrEmptyDescription is returned by Create when desc is blank.
	ErrEmptyDescription = errors.New("task description is required")
	// ErrNotFound is returned when an operation names an unknown id.
	ErrNotFound = errors.New("not found")
)

// EventType identifies what changed in the store.
type EventType string

// Store event types
const (
	EventCreated  EventType = "created"
	EventPatched  EventType = "patched"
	EventDeleted  EventType = "deleted"
	EventReloaded EventType = "reloaded"
)

// Event is delivered to subscribers after a mutation has been persisted.
type Event struct {
	Type   EventType
	Ticker string
	TaskID string
}

// Store is the single source of truth for tasks. Every mutation is written
// through to the backend before it becomes visible; if the write fails the
// in-memory state is rolled back.
type Store struct {
	mu      sync.Mutex
	backend Backend
	ids     util.IDGenerator
	now     func() time.Time
	logger  *slog.Logger
	tasks   map[string][]Task

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the id generator (defaults to UUIDv7).
func WithIDGenerator(g util.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open creates a Store hydrated from backend. Missing or corrupt persisted
// state yields an empty store; only backend I/O failures are returned.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		ids:     util.UUIDGenerator{},
		now:     time.Now,
		logger:  logging.Discard(),
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}

	tasks, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.tasks = tasks
	return s, nil
}

func (s *Store) load(ctx context.Context) (map[string][]Task, error) {
	tasks, err := s.backend.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn("store_hydrate_reset", "error", err)
		return map[string][]Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if tasks == nil {
		tasks = map[string][]Task{}
	}
	return tasks, nil
}

// NewID returns an identifier from the store's generator. Components that
// build screenshots and plan steps share it so ids stay unique across a task.
func (s *Store) NewID() string {
	return s.ids.NewID()
}

// Create adds a new draft task at the front of ticker's list.
func (s *Store) Create(ctx context.Context, ticker, name, desc string) (Task, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return Task{}, ErrEmptyDescription
	}

	t := Task{
		ID:          s.ids.NewID(),
		Ticker:      ticker,
		Name:        strings.TrimSpace(name),
		Desc:        desc,
		Status:      StatusDraft,
		Screenshots: []Screenshot{},
		Plan:        []PlanStep{},
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	prev := s.tasks[ticker]
	list := make([]Task, 0, len(prev)+1)
	list = append(list, t)
	list = append(list, prev...)
	s.tasks[ticker] = list
	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(ticker, prev)
		s.mu.Unlock()
		return Task{}, err
	}
	s.mu.Unlock()

	s.logger.Info("task_created", "task_id", t.ID, "ticker", ticker)
	s.publish(Event{Type: EventCreated, Ticker: ticker, TaskID: t.ID})
	return t.Clone(), nil
}

// Apply runs mutations against task id in order. Either all mutations take
// effect or none do.
func (s *Store) Apply(ctx context.Context, id string, muts ...Mutation) error {
	s.mu.Lock()
	ticker, idx, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	prev := s.tasks[ticker]
	next := prev[idx].Clone()
	for _, m := range muts {
		if err := m.apply(&next); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	list := make([]Task, len(prev))
	copy(list, prev)
	list[idx] = next
	s.tasks[ticker] = list
	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(ticker, prev)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	kinds := make([]string, len(muts))
	for i, m := range muts {
		kinds[i] = m.Kind()
	}
	s.logger.Debug("task_patched", "task_id", id, "mutations", kinds)
	s.publish(Event{Type: EventPatched, Ticker: ticker, TaskID: id})
	return nil
}

// Delete irreversibly removes task id. Callers are responsible for obtaining
// confirmation first.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	ticker, idx, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	prev := s.tasks[ticker]
	list := make([]Task, 0, len(prev)-1)
	list = append(list, prev[:idx]...)
	list = append(list, prev[idx+1:]...)
	if len(list) == 0 {
		delete(s.tasks, ticker)
	} else {
		s.tasks[ticker] = list
	}
	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(ticker, prev)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("task_deleted", "task_id", id, "ticker", ticker)
	s.publish(Event{Type: EventDeleted, Ticker: ticker, TaskID: id})
	return nil
}

// List returns ticker's tasks, newest first.
func (s *Store) List(ticker string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.tasks[ticker]
	out := make([]Task, len(src))
	for i := range src {
		out[i] = src[i].Clone()
	}
	return out
}

// Get returns a copy of task id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker, idx, ok := s.findLocked(id)
	if !ok {
		return Task{}, false
	}
	return s.tasks[ticker][idx].Clone(), true
}

// Tickers returns every ticker that currently has tasks, sorted.
func (s *Store) Tickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tasks))
	for ticker := range s.tasks {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a deep copy of the full ticker-to-tasks mapping.
func (s *Store) Snapshot() map[string][]Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMapping(s.tasks)
}

// Reload replaces the in-memory state with whatever the backend holds.
func (s *Store) Reload(ctx context.Context) error {
	tasks, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()

	s.publish(Event{Type: EventReloaded})
	return nil
}

// Subscribe registers fn for every subsequent event. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(e Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

func (s *Store) findLocked(id string) (string, int, bool) {
	for ticker, list := range s.tasks {
		for i := range list {
			if list[i].ID == id {
				return ticker, i, true
			}
		}
	}
	return "", -1, false
}

func (s *Store) restoreLocked(ticker string, prev []Task) {
	if len(prev) == 0 {
		delete(s.tasks, ticker)
		return
	}
	s.tasks[ticker] = prev
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.backend.Save(ctx, s.tasks); err != nil {
		s.logger.Error("store_persist_failed", "error", err)
		return fmt.Errorf("failed to persist tasks: %w", err)
	}
	return nil
}

func cloneMapping(src map[string][]Task) map[string][]Task {
	out := make(map[string][]Task, len(src))
	for ticker, list := range src {
		cp := make([]Task, len(list))
		for i := range list {
			cp[i] = list[i].Clone()
		}
		out[ticker] = cp
	}
	return out
}
