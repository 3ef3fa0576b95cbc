package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/obs"
	"organisekaro/backend/internal/state"
	"organisekaro/backend/internal/store"
)

const saveTimeout = 5 * time.Second

var ErrClosed = errors.New("store is closed")

// Store owns the live application state. Every transition goes through
// Dispatch, which applies the reducer under the write lock and hands the
// encoded document to a background writer. The writer keeps only the most
// recent pending document, so a slow persister never blocks callers and the
// last write always wins.
type Store struct {
	mu        sync.RWMutex
	state     domain.AppState
	closed    bool
	persister store.Persister
	key       string
	log       zerolog.Logger
	metrics   *obs.Metrics

	pending chan []byte
	done    chan struct{}
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New hydrates from persister. A missing document starts from the seed
// data; an unreadable or corrupt one is logged and also replaced by the seed.
func New(ctx context.Context, persister store.Persister, opts ...Option) *Store {
	if persister == nil {
		persister = store.NoopPersister{}
	}
	s := &Store{
		persister: persister,
		key:       store.StorageKey,
		log:       zerolog.Nop(),
		pending:   make(chan []byte, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.hydrate(ctx)
	go s.run()
	return s
}

// NewSeeded returns a store holding the seed data with no durable backing.
func NewSeeded() *Store {
	return New(context.Background(), store.NoopPersister{})
}

func (s *Store) hydrate(ctx context.Context) domain.AppState {
	data, err := s.persister.Load(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Info().Str("key", s.key).Msg("no saved data, starting from seed")
		return state.Seed()
	}
	if err != nil {
		s.metrics.ObservePersistenceFailure("load")
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to load saved data, starting from seed")
		return state.Seed()
	}

	decoded, err := state.Decode(data)
	if err != nil {
		s.metrics.ObservePersistenceFailure("decode")
		s.log.Warn().Err(err).Str("key", s.key).Msg("saved data is corrupt, starting from seed")
		return state.Seed()
	}
	s.log.Info().
		Str("key", s.key).
		Int("inventory", len(decoded.Inventory)).
		Int("parties", len(decoded.Parties)).
		Int("invoices", len(decoded.Invoices)).
		Msg("state hydrated")
	return decoded
}

// Dispatch applies action and schedules persistence of the resulting state.
func (s *Store) Dispatch(action state.Action) {
	_ = s.DispatchChecked(nil, action)
}

// DispatchChecked runs check against the current state and applies action
// only if check returns nil. Both happen under the same lock, so no other
// transition can interleave.
func (s *Store) DispatchChecked(check func(domain.AppState) error, action state.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if check != nil {
		if err := check(s.state); err != nil {
			return err
		}
	}

	s.state = state.Reduce(s.state, action)
	s.metrics.ObserveAction(action.Name())
	s.log.Debug().Str("action", action.Name()).Msg("state transition")

	if s.closed {
		s.log.Warn().Str("action", action.Name()).Msg("store closed, transition not persisted")
		return nil
	}
	doc, err := state.Encode(s.state)
	if err != nil {
		s.metrics.ObservePersistenceFailure("encode")
		s.log.Error().Err(err).Str("action", action.Name()).Msg("failed to encode state")
		return nil
	}
	s.enqueue(doc)
	return nil
}

// enqueue replaces any unsent document with doc. Callers hold s.mu, so there
// is a single sender and the send below never blocks.
func (s *Store) enqueue(doc []byte) {
	select {
	case s.pending <- doc:
		return
	default:
	}
	select {
	case <-s.pending:
	default:
	}
	s.pending <- doc
}

func (s *Store) run() {
	defer close(s.done)
	for doc := range s.pending {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := s.persister.Save(ctx, s.key, doc)
		cancel()
		if err != nil {
			s.metrics.ObservePersistenceFailure("save")
			s.log.Error().Err(err).Str("key", s.key).Int("bytes", len(doc)).Msg("failed to persist state")
		}
	}
}

// Close stops accepting writes and waits for the pending document to be saved.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	close(s.pending)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() domain.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return state.Clone(s.state)
}

func (s *Store) LookupItem(id string) (domain.InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.Inventory {
		if item.ID == id {
			return item, true
		}
	}
	return domain.InventoryItem{}, false
}

func (s *Store) LookupParty(id string) (domain.Party, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, party := range s.state.Parties {
		if party.ID == id {
			return party, true
		}
	}
	return domain.Party{}, false
}

func (s *Store) FindInvoice(id string) (domain.Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.state.Invoices {
		if inv.ID == id {
			dup := inv
			dup.Items = append([]domain.CartItem(nil), inv.Items...)
			return dup, true
		}
	}
	return domain.Invoice{}, false
}

func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}
