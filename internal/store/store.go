package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inos/internal/models/state_models"
	"inos/pkg/metrics"
	"inos/pkg/utils"
)

const (
	DefaultKey      = "inos-storage"
	DefaultMaxBytes = 500000

	MaxAnalyses         = 10
	MaxFullFaceAnalyses = 5
)

// Store is the local source of truth. Every mutation goes through a reducer method,
// is applied under the write lock and then persisted through the Storage port.
// Persist failures are logged and counted; they never surface to callers.
type Store struct {
	mu    sync.RWMutex
	state state_models.AppState

	storage        Storage
	key            string
	maxBytes       int
	persistTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithMaxBytes(n int) Option {
	return func(s *Store) { s.maxBytes = n }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) { s.persistTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		state:          state_models.InitialState(),
		storage:        storage,
		key:            DefaultKey,
		maxBytes:       DefaultMaxBytes,
		persistTimeout: 5 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores the persisted blob. A blob that cannot be read, is larger than
// the size threshold or does not decode is removed and the store starts empty.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state_models.InitialState()

	raw, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		s.discard(ctx, "read_error", zap.Error(err))
		return nil
	case len(raw) > s.maxBytes:
		s.discard(ctx, "too_large", zap.Int("bytes", len(raw)), zap.Int("max_bytes", s.maxBytes))
		return nil
	}

	var restored state_models.AppState
	if err := json.Unmarshal(raw, &restored); err != nil {
		s.discard(ctx, "decode_error", zap.Error(err))
		return nil
	}
	s.state = normalize(restored)

	s.logger.Info("local state restored",
		zap.Int("bytes", len(raw)),
		zap.Int("analyses", len(s.state.Analyses)),
		zap.Int("orders", len(s.state.Orders)))
	return nil
}

func (s *Store) discard(ctx context.Context, reason string, fields ...zap.Field) {
	s.logger.Warn("discarding persisted state", append(fields, zap.String("reason", reason))...)
	s.metrics.BootDiscard(reason)
	if err := s.storage.Remove(ctx, s.key); err != nil {
		s.logger.Error("failed to remove persisted state", zap.Error(err))
	}
}

// Purge removes the backing blob without touching in-memory state.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("purge local state: %w", err)
	}
	return nil
}

// update applies fn under the write lock and persists the result.
func (s *Store) update(fn func(st *state_models.AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	s.persistLocked()
}

// updateIf is update gated by valid, which runs under the same write lock.
// A nil valid always passes. It reports whether fn ran.
func (s *Store) updateIf(valid func() bool, fn func(st *state_models.AppState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if valid != nil && !valid() {
		return false
	}
	fn(&s.state)
	s.persistLocked()
	return true
}

func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.state)
	if err != nil {
		s.logger.Error("failed to encode local state", zap.Error(err))
		s.metrics.PersistFailure()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.storage.Save(ctx, s.key, raw); err != nil {
		s.logger.Error("failed to persist local state", zap.Error(err), zap.Int("bytes", len(raw)))
		s.metrics.PersistFailure()
	}
}

func (s *Store) read(fn func(st *state_models.AppState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

// ---- reads ----

func (s *Store) State() state_models.AppState {
	var out state_models.AppState
	s.read(func(st *state_models.AppState) { out = cloneState(*st) })
	return out
}

func (s *Store) User() *state_models.UserProfile {
	var out *state_models.UserProfile
	s.read(func(st *state_models.AppState) { out = cloneUser(st.User) })
	return out
}

func (s *Store) Analyses() []state_models.SkinAnalysis {
	var out []state_models.SkinAnalysis
	s.read(func(st *state_models.AppState) { out = cloneAnalyses(st.Analyses) })
	return out
}

func (s *Store) LatestAnalysis() (state_models.SkinAnalysis, bool) {
	var (
		out state_models.SkinAnalysis
		ok  bool
	)
	s.read(func(st *state_models.AppState) {
		if len(st.Analyses) > 0 {
			out, ok = cloneAnalysis(st.Analyses[0]), true
		}
	})
	return out, ok
}

func (s *Store) FullFaceAnalyses() []state_models.FullFaceAnalysis {
	var out []state_models.FullFaceAnalysis
	s.read(func(st *state_models.AppState) { out = cloneFullFaces(st.FullFaceAnalyses) })
	return out
}

func (s *Store) LatestFullFaceAnalysis() (state_models.FullFaceAnalysis, bool) {
	var (
		out state_models.FullFaceAnalysis
		ok  bool
	)
	s.read(func(st *state_models.AppState) {
		if len(st.FullFaceAnalyses) > 0 {
			out, ok = cloneFullFace(st.FullFaceAnalyses[0]), true
		}
	})
	return out, ok
}

func (s *Store) Subscription() state_models.Subscription {
	var out state_models.Subscription
	s.read(func(st *state_models.AppState) { out = cloneSubscription(st.Subscription) })
	return out
}

func (s *Store) Orders() []state_models.Order {
	var out []state_models.Order
	s.read(func(st *state_models.AppState) { out = cloneOrders(st.Orders) })
	return out
}

func (s *Store) Cart() []state_models.CartItem {
	var out []state_models.CartItem
	s.read(func(st *state_models.AppState) { out = append([]state_models.CartItem{}, st.Cart...) })
	return out
}

func (s *Store) CartItemCount() int {
	n := 0
	s.read(func(st *state_models.AppState) {
		for _, item := range st.Cart {
			n += item.Quantity
		}
	})
	return n
}

// ---- reducers ----

func (s *Store) SetUser(user *state_models.UserProfile) {
	s.update(func(st *state_models.AppState) { st.User = cloneUser(user) })
}

// UpdateUser merges patch into the current profile. It is a no-op when no profile is set.
func (s *Store) UpdateUser(patch state_models.UserPatch) {
	s.update(func(st *state_models.AppState) {
		if st.User == nil {
			return
		}
		u := st.User
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.AvatarURI != nil {
			u.AvatarURI = *patch.AvatarURI
		}
		if patch.SkinType != nil {
			u.SkinType = *patch.SkinType
		}
		if patch.Concerns != nil {
			u.Concerns = append([]string{}, patch.Concerns...)
		}
		if patch.OnboardingCompleted != nil {
			u.OnboardingCompleted = *patch.OnboardingCompleted
		}
		if patch.QuizAnswers != nil {
			u.QuizAnswers = cloneMap(patch.QuizAnswers)
		}
	})
}

func (s *Store) SetOnboardingStep(step int) {
	s.update(func(st *state_models.AppState) { st.OnboardingStep = step })
}

// AddAnalysis prepends entry and keeps the newest MaxAnalyses. Local photo
// references are dropped so the persisted blob only ever carries remote URLs.
func (s *Store) AddAnalysis(entry state_models.SkinAnalysis) {
	entry = cloneAnalysis(entry)
	if !state_models.IsRemoteURI(entry.PhotoURI) {
		entry.PhotoURI = ""
	}

	s.update(func(st *state_models.AppState) {
		list := make([]state_models.SkinAnalysis, 0, len(st.Analyses)+1)
		list = append(list, entry)
		list = append(list, st.Analyses...)
		if len(list) > MaxAnalyses {
			list = list[:MaxAnalyses]
		}
		st.Analyses = list
	})
}

func (s *Store) UpdateAnalysisPhotoURL(id, photoURL string) {
	s.update(func(st *state_models.AppState) {
		for i := range st.Analyses {
			if st.Analyses[i].ID == id {
				st.Analyses[i].PhotoURI = photoURL
			}
		}
	})
}

// MergeAnalyses folds entries pulled from the backend into the local list when
// valid still holds. Local-only entries are kept. The result is ordered newest
// first and capped at MaxAnalyses.
func (s *Store) MergeAnalyses(entries []state_models.SkinAnalysis, valid func() bool) bool {
	entries = cloneAnalyses(entries)
	return s.updateIf(valid, func(st *state_models.AppState) {
		list := mergeByID(st.Analyses, entries, analysisEntry)
		if len(list) > MaxAnalyses {
			list = list[:MaxAnalyses]
		}
		st.Analyses = list
	})
}

func (s *Store) AddFullFaceAnalysis(entry state_models.FullFaceAnalysis) {
	entry = cloneFullFace(entry)
	if !state_models.IsRemoteURI(entry.PhotoURI) {
		entry.PhotoURI = ""
	}

	s.update(func(st *state_models.AppState) {
		list := make([]state_models.FullFaceAnalysis, 0, len(st.FullFaceAnalyses)+1)
		list = append(list, entry)
		list = append(list, st.FullFaceAnalyses...)
		if len(list) > MaxFullFaceAnalyses {
			list = list[:MaxFullFaceAnalyses]
		}
		st.FullFaceAnalyses = list
	})
}

func (s *Store) UpdateFullFacePhotoURL(id, photoURL string) {
	s.update(func(st *state_models.AppState) {
		for i := range st.FullFaceAnalyses {
			if st.FullFaceAnalyses[i].ID == id {
				st.FullFaceAnalyses[i].PhotoURI = photoURL
			}
		}
	})
}

// SetSubscription overwrites the subscription. Last write wins.
func (s *Store) SetSubscription(sub state_models.Subscription) {
	sub = cloneSubscription(sub)
	s.update(func(st *state_models.AppState) { st.Subscription = sub })
}

// MergeProfile installs a profile pulled from the backend when valid still holds.
// sub, when given, replaces the local subscription unless the local one expires
// later.
func (s *Store) MergeProfile(user *state_models.UserProfile, sub *state_models.Subscription, valid func() bool) bool {
	user = cloneUser(user)
	var remote state_models.Subscription
	if sub != nil {
		remote = cloneSubscription(*sub)
	}
	return s.updateIf(valid, func(st *state_models.AppState) {
		st.User = user
		if user != nil {
			st.HasSeenOnboarding = user.OnboardingCompleted
		}
		if sub != nil && expiresLater(remote, st.Subscription) {
			st.Subscription = remote
		}
	})
}

func (s *Store) AddOrder(order state_models.Order) {
	order = cloneOrder(order)
	s.update(func(st *state_models.AppState) {
		st.Orders = append([]state_models.Order{order}, st.Orders...)
	})
}

// MergeOrders folds orders pulled from the backend into the local history when
// valid still holds, remote winning on the same order, newest first.
func (s *Store) MergeOrders(orders []state_models.Order, valid func() bool) bool {
	orders = cloneOrders(orders)
	return s.updateIf(valid, func(st *state_models.AppState) {
		st.Orders = mergeByID(st.Orders, orders, orderEntry)
	})
}

// AddToCart merges into an existing line. A non-positive quantity counts as one.
func (s *Store) AddToCart(productID string, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}
	s.update(func(st *state_models.AppState) {
		for i := range st.Cart {
			if st.Cart[i].ProductID == productID {
				st.Cart[i].Quantity += quantity
				return
			}
		}
		st.Cart = append(st.Cart, state_models.CartItem{ProductID: productID, Quantity: quantity})
	})
}

func (s *Store) RemoveFromCart(productID string) {
	s.update(func(st *state_models.AppState) {
		st.Cart = removeCartLine(st.Cart, productID)
	})
}

// UpdateCartQuantity sets the line quantity; zero or less removes the line.
func (s *Store) UpdateCartQuantity(productID string, quantity int) {
	s.update(func(st *state_models.AppState) {
		if quantity <= 0 {
			st.Cart = removeCartLine(st.Cart, productID)
			return
		}
		for i := range st.Cart {
			if st.Cart[i].ProductID == productID {
				st.Cart[i].Quantity = quantity
			}
		}
	})
}

func (s *Store) ClearCart() {
	s.update(func(st *state_models.AppState) { st.Cart = []state_models.CartItem{} })
}

// TakeCart empties the cart and returns what it held, in one write.
func (s *Store) TakeCart() []state_models.CartItem {
	var taken []state_models.CartItem
	s.update(func(st *state_models.AppState) {
		taken = st.Cart
		st.Cart = []state_models.CartItem{}
	})
	return taken
}

// ReturnToCart merges items taken by TakeCart back into the current cart.
// Lines added in the meantime keep their quantities.
func (s *Store) ReturnToCart(items []state_models.CartItem) {
	if len(items) == 0 {
		return
	}
	s.update(func(st *state_models.AppState) {
		for _, item := range items {
			if item.Quantity <= 0 {
				continue
			}
			merged := false
			for i := range st.Cart {
				if st.Cart[i].ProductID == item.ProductID {
					st.Cart[i].Quantity += item.Quantity
					merged = true
					break
				}
			}
			if !merged {
				st.Cart = append(st.Cart, item)
			}
		}
	})
}

func (s *Store) SetHasSeenOnboarding(seen bool) {
	s.update(func(st *state_models.AppState) { st.HasSeenOnboarding = seen })
}

func (s *Store) SetHasSeenIntro(seen bool) {
	s.update(func(st *state_models.AppState) { st.HasSeenIntro = seen })
}

// Reset restores the initial state. The initial state is persisted like any other
// write; removing the backing blob is left to Purge.
func (s *Store) Reset() {
	s.update(func(st *state_models.AppState) { *st = state_models.InitialState() })
}

func removeCartLine(cart []state_models.CartItem, productID string) []state_models.CartItem {
	out := make([]state_models.CartItem, 0, len(cart))
	for _, item := range cart {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}

func expiresLater(remote, local state_models.Subscription) bool {
	if local.ExpiresAt == nil {
		return true
	}
	return remote.ExpiresAt != nil && remote.ExpiresAt.After(*local.ExpiresAt)
}

// syncEntry describes how a list entry is keyed and dated for mergeByID. adopt
// resolves a clash: it returns the remote entry carrying the local id and any
// local-only fields the backend does not store.
type syncEntry[T any] struct {
	id    func(T) string
	date  func(T) string
	adopt func(remote, local T) T
}

var (
	analysisEntry = syncEntry[state_models.SkinAnalysis]{
		id:   func(a state_models.SkinAnalysis) string { return a.ID },
		date: func(a state_models.SkinAnalysis) string { return a.Date },
		adopt: func(remote, local state_models.SkinAnalysis) state_models.SkinAnalysis {
			remote.ID = local.ID
			if remote.Analysis == "" {
				remote.Analysis = local.Analysis
			}
			if remote.PhotoURI == "" {
				remote.PhotoURI = local.PhotoURI
			}
			remote.Simulated = remote.Simulated || local.Simulated
			return remote
		},
	}
	orderEntry = syncEntry[state_models.Order]{
		id:   func(o state_models.Order) string { return o.ID },
		date: func(o state_models.Order) string { return o.Date },
		adopt: func(remote, local state_models.Order) state_models.Order {
			remote.ID = local.ID
			return remote
		},
	}
)

// mergeByID unions local and remote entries keyed by utils.RemoteID, so a local
// entry and the backend row it was saved as collapse into one. On a clash the
// remote content wins through adopt. The result is sorted newest first by
// RFC3339 date; unparseable dates sort last.
func mergeByID[T any](local, remote []T, e syncEntry[T]) []T {
	byKey := make(map[uuid.UUID]T, len(local))
	for _, l := range local {
		byKey[utils.RemoteID(e.id(l))] = l
	}

	seen := make(map[uuid.UUID]struct{}, len(remote)+len(local))
	out := make([]T, 0, len(local)+len(remote))
	for _, r := range remote {
		key := utils.RemoteID(e.id(r))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if l, ok := byKey[key]; ok {
			r = e.adopt(r, l)
		}
		out = append(out, r)
	}
	for _, l := range local {
		key := utils.RemoteID(e.id(l))
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, l)
		}
	}

	parse := func(v T) time.Time {
		t, err := time.Parse(time.RFC3339, e.date(v))
		if err != nil {
			return time.Time{}
		}
		return t
	}
	slices.SortStableFunc(out, func(a, b T) int { return parse(b).Compare(parse(a)) })
	return out
}

// normalize enforces list caps and non-nil slices on a restored blob.
func normalize(st state_models.AppState) state_models.AppState {
	if st.Analyses == nil {
		st.Analyses = []state_models.SkinAnalysis{}
	}
	if len(st.Analyses) > MaxAnalyses {
		st.Analyses = st.Analyses[:MaxAnalyses]
	}
	if st.FullFaceAnalyses == nil {
		st.FullFaceAnalyses = []state_models.FullFaceAnalysis{}
	}
	if len(st.FullFaceAnalyses) > MaxFullFaceAnalyses {
		st.FullFaceAnalyses = st.FullFaceAnalyses[:MaxFullFaceAnalyses]
	}
	if st.Orders == nil {
		st.Orders = []state_models.Order{}
	}
	if st.Cart == nil {
		st.Cart = []state_models.CartItem{}
	}
	return st
}
