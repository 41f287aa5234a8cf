package cartsync

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Store is the client-side borrow cart. All mutating operations commit to
// memory and the local store synchronously; propagation to the remote
// mirror happens on a background worker and is strictly best effort.
//
// A Store must be initialized with Init before use and released with Close.
// It is safe for concurrent use.
type Store struct {
	local  LocalStore
	remote Remote
	lg     *zap.Logger

	mu    sync.Mutex
	items []Item
	token string
	// primed flips once Init (or a later login fetch) has reconciled the
	// remote mirror. Changes made before that point are persisted locally
	// but never pushed, so a stale local cart cannot clobber a remote cart
	// that has not been fetched yet.
	primed bool

	subs []func([]Item)

	syncCh chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for background sync and persistence
// failures. Defaults to zap.NewNop().
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// WithToken sets the session token at construction time, enabling the
// remote fetch during Init.
func WithToken(token string) Option {
	return func(s *Store) { s.token = token }
}

// New creates a Store backed by the given local store and remote mirror.
// remote may be nil for a purely offline cart.
func New(local LocalStore, remote Remote, opts ...Option) *Store {
	s := &Store{
		local:  local,
		remote: remote,
		lg:     zap.NewNop(),
		syncCh: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init hydrates the cart from the local store, reconciles it with the
// remote mirror when a session token is present, and starts the background
// sync worker. Hydration and fetch failures degrade to an empty or
// local-only cart; Init itself never fails.
func (s *Store) Init(ctx context.Context) {
	items, err := s.local.Load()
	if err != nil {
		s.lg.Warn("cart hydration failed, starting empty", zap.Error(err))
		items = nil
	}

	s.mu.Lock()
	s.items = items
	token := s.token
	s.mu.Unlock()

	if token != "" {
		s.fetchRemote(ctx)
	}

	s.mu.Lock()
	s.primed = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.syncLoop()
}

// Close stops the background sync worker. A push in flight is abandoned.
func (s *Store) Close() {
	close(s.done)
	s.wg.Wait()
}

// SetToken records a fresh session token (login) and reconciles with the
// remote mirror: a non-empty remote cart replaces the local one wholesale.
// Passing an empty token (logout) only disables remote syncing.
func (s *Store) SetToken(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if token != "" {
		s.fetchRemote(ctx)
	}
}

// fetchRemote pulls the mirror and, when it is non-empty, overwrites local
// state with it. The overwrite is persisted locally but not echoed back to
// the remote. Fetch failures leave local state untouched.
func (s *Store) fetchRemote(ctx context.Context) {
	if s.remote == nil {
		return
	}

	fetched, err := s.remote.Fetch(ctx)
	if err != nil {
		s.lg.Warn("remote cart fetch failed, keeping local cart", zap.Error(err))
		return
	}
	if len(fetched) == 0 {
		return
	}

	s.mu.Lock()
	s.items = fetched
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot)
	s.notify(snapshot)
}

// AddToCart puts one copy of the book in the cart. If the book is already
// present its quantity grows by one, silently capped at the copies in
// stock. Out-of-stock books are ignored.
func (s *Store) AddToCart(b Book) {
	if b.NoOfCopies <= 0 {
		return
	}

	s.mu.Lock()
	changed := false
	if i := s.indexLocked(b.ID); i >= 0 {
		if s.items[i].Quantity < s.items[i].Book.NoOfCopies {
			s.items[i].Quantity++
			changed = true
		}
	} else {
		s.items = append(s.items, Item{Book: b, Quantity: 1})
		changed = true
	}
	s.changedLocked(changed)
}

// RemoveFromCart deletes the book's line. Absent books are a no-op.
func (s *Store) RemoveFromCart(bookID string) {
	s.mu.Lock()
	changed := false
	if i := s.indexLocked(bookID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		changed = true
	}
	s.changedLocked(changed)
}

// IncreaseQty raises the book's quantity by one, capped at the copies in
// stock.
func (s *Store) IncreaseQty(bookID string) {
	s.mu.Lock()
	changed := false
	if i := s.indexLocked(bookID); i >= 0 && s.items[i].Quantity < s.items[i].Book.NoOfCopies {
		s.items[i].Quantity++
		changed = true
	}
	s.changedLocked(changed)
}

// DecreaseQty lowers the book's quantity by one. Going below one is a
// no-op; use RemoveFromCart to delete the line.
func (s *Store) DecreaseQty(bookID string) {
	s.mu.Lock()
	changed := false
	if i := s.indexLocked(bookID); i >= 0 && s.items[i].Quantity > 1 {
		s.items[i].Quantity--
		changed = true
	}
	s.changedLocked(changed)
}

// ClearCart empties the cart, typically after a successful checkout.
func (s *Store) ClearCart() {
	s.mu.Lock()
	changed := len(s.items) > 0
	s.items = nil
	s.changedLocked(changed)
}

// IsInCart reports whether the book has a line in the cart.
func (s *Store) IsInCart(bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(bookID) >= 0
}

// CartCount returns the sum of all line quantities.
func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// ItemQuantity returns the quantity of the book's line, or zero when the
// book is not in the cart.
func (s *Store) ItemQuantity(bookID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(bookID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// OnChange registers fn to be called with a snapshot after every effective
// mutation. Registration is not synchronized with Init; register before
// calling it.
func (s *Store) OnChange(fn func([]Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// changedLocked finishes a mutation: it persists and schedules a remote
// sync when the state actually changed. Called with mu held; releases it.
func (s *Store) changedLocked(changed bool) {
	if !changed {
		s.mu.Unlock()
		return
	}

	snapshot := s.snapshotLocked()
	syncRemote := s.primed && s.token != "" && s.remote != nil
	s.mu.Unlock()

	s.persist(snapshot)
	s.notify(snapshot)

	if syncRemote {
		// Coalescing signal: the worker always pushes the latest snapshot,
		// so collapsed signals lose nothing.
		select {
		case s.syncCh <- struct{}{}:
		default:
		}
	}
}

func (s *Store) indexLocked(bookID string) int {
	for i, it := range s.items {
		if it.Book.ID == bookID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) persist(snapshot []Item) {
	if err := s.local.Save(snapshot); err != nil {
		s.lg.Warn("cart persistence failed", zap.Error(err))
	}
}

func (s *Store) notify(snapshot []Item) {
	s.mu.Lock()
	subs := make([]func([]Item), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// syncLoop serializes remote pushes: one outstanding request at a time,
// always carrying the latest snapshot, so rapid mutations cannot reach the
// mirror out of order. Failed pushes are logged and dropped; the next
// mutation carries the corrected state anyway.
func (s *Store) syncLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.syncCh:
			s.mu.Lock()
			snapshot := s.snapshotLocked()
			s.mu.Unlock()

			if err := s.remote.Replace(context.Background(), snapshot); err != nil {
				s.lg.Warn("remote cart sync failed", zap.Error(err))
			}
		}
	}
}
