package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inos/internal/models/state_models"
	"inos/pkg/metrics"
	"inos/pkg/utils"
)

func newTestStore(t *testing.T) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	s := New(storage, WithMetrics(metrics.New()))
	require.NoError(t, s.Hydrate(context.Background()))
	return s, storage
}

func persisted(t *testing.T, storage *MemoryStorage) state_models.AppState {
	t.Helper()
	raw, err := storage.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	var st state_models.AppState
	require.NoError(t, json.Unmarshal(raw, &st))
	return st
}

func TestAddAnalysisKeepsNewestTen(t *testing.T) {
	s, _ := newTestStore(t)

	for i := 0; i < 25; i++ {
		s.AddAnalysis(state_models.SkinAnalysis{ID: fmt.Sprintf("a-%02d", i), Score: i})

		list := s.Analyses()
		assert.LessOrEqual(t, len(list), MaxAnalyses)
		assert.Equal(t, fmt.Sprintf("a-%02d", i), list[0].ID)
		for j := 1; j < len(list); j++ {
			assert.Greater(t, list[j-1].Score, list[j].Score, "list must stay newest-first")
		}
	}

	list := s.Analyses()
	require.Len(t, list, MaxAnalyses)
	assert.Equal(t, "a-24", list[0].ID)
	assert.Equal(t, "a-15", list[9].ID)
}

func TestAddAnalysisStripsLocalPhoto(t *testing.T) {
	s, storage := newTestStore(t)

	local := "file:///data/user/0/app/cache/" + strings.Repeat("x", 2048) + ".jpg"
	s.AddAnalysis(state_models.SkinAnalysis{ID: "local", PhotoURI: local})
	s.AddAnalysis(state_models.SkinAnalysis{ID: "inline", PhotoURI: "data:image/jpeg;base64,/9j/4AAQ"})
	s.AddAnalysis(state_models.SkinAnalysis{ID: "remote", PhotoURI: "https://cdn.example.com/p.jpg"})

	raw, err := storage.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "file:///")
	assert.NotContains(t, string(raw), "data:image")

	st := persisted(t, storage)
	require.Len(t, st.Analyses, 3)
	assert.Equal(t, "https://cdn.example.com/p.jpg", st.Analyses[0].PhotoURI)
	assert.Empty(t, st.Analyses[1].PhotoURI)
	assert.Empty(t, st.Analyses[2].PhotoURI)
}

func TestUpdateAnalysisPhotoURL(t *testing.T) {
	s, storage := newTestStore(t)
	s.AddAnalysis(state_models.SkinAnalysis{ID: "a1", PhotoURI: "file:///tmp/a.jpg"})
	s.AddAnalysis(state_models.SkinAnalysis{ID: "a2"})

	s.UpdateAnalysisPhotoURL("a1", "https://cdn.example.com/u/analyses/1.jpg")

	list := s.Analyses()
	assert.Empty(t, list[0].PhotoURI)
	assert.Equal(t, "https://cdn.example.com/u/analyses/1.jpg", list[1].PhotoURI)
	assert.Equal(t, "https://cdn.example.com/u/analyses/1.jpg", persisted(t, storage).Analyses[1].PhotoURI)
}

func TestAddFullFaceAnalysisKeepsNewestFive(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 8; i++ {
		s.AddFullFaceAnalysis(state_models.FullFaceAnalysis{ID: fmt.Sprintf("f-%d", i), PhotoURI: "file:///x.jpg"})
	}

	list := s.FullFaceAnalyses()
	require.Len(t, list, MaxFullFaceAnalyses)
	assert.Equal(t, "f-7", list[0].ID)
	assert.Equal(t, "f-3", list[4].ID)
	for _, f := range list {
		assert.Empty(t, f.PhotoURI)
	}

	latest, ok := s.LatestFullFaceAnalysis()
	require.True(t, ok)
	assert.Equal(t, "f-7", latest.ID)
}

func TestCartReducers(t *testing.T) {
	s, _ := newTestStore(t)

	s.AddToCart("serum-vitamin-c", 0)
	s.AddToCart("serum-vitamin-c", 2)
	s.AddToCart("gua-sha", 1)
	assert.Equal(t, 4, s.CartItemCount())

	s.UpdateCartQuantity("gua-sha", 5)
	assert.Equal(t, 8, s.CartItemCount())

	s.UpdateCartQuantity("gua-sha", 0)
	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, state_models.CartItem{ProductID: "serum-vitamin-c", Quantity: 3}, cart[0])

	s.RemoveFromCart("serum-vitamin-c")
	assert.Empty(t, s.Cart())

	s.AddToCart("gua-sha", 1)
	s.ClearCart()
	assert.Zero(t, s.CartItemCount())
}

func TestOrdersArePrepended(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddOrder(state_models.Order{ID: "order-1"})
	s.AddOrder(state_models.Order{ID: "order-2"})

	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "order-2", orders[0].ID)
}

func TestTakeCartEmptiesInOneWrite(t *testing.T) {
	s, storage := newTestStore(t)
	s.AddToCart("gua-sha", 2)
	s.AddToCart("roller-jade", 1)

	taken := s.TakeCart()
	assert.Equal(t, []state_models.CartItem{{ProductID: "gua-sha", Quantity: 2}, {ProductID: "roller-jade", Quantity: 1}}, taken)
	assert.Empty(t, s.Cart())
	assert.Empty(t, persisted(t, storage).Cart)
	assert.Empty(t, s.TakeCart())

	s.AddToCart("gua-sha", 1)
	s.ReturnToCart(taken)
	assert.Equal(t, []state_models.CartItem{{ProductID: "gua-sha", Quantity: 3}, {ProductID: "roller-jade", Quantity: 1}}, s.Cart())
}

func TestMergeOrdersKeepsLocalOnlyOrders(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddOrder(state_models.Order{ID: "order-local", Date: "2025-03-02T10:00:00Z"})
	s.AddOrder(state_models.Order{ID: "order-synced", Date: "2025-03-01T10:00:00Z", Status: state_models.OrderPending})

	applied := s.MergeOrders([]state_models.Order{
		{ID: utils.RemoteID("order-synced").String(), Date: "2025-03-01T10:00:00Z", Status: state_models.OrderShipped},
		{ID: "7d4c8a8e-1a0b-4c3e-9a55-5a6f1e0b9c21", Date: "2025-02-01T10:00:00Z"},
	}, nil)
	require.True(t, applied)

	orders := s.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, "order-local", orders[0].ID)
	assert.Equal(t, "order-synced", orders[1].ID)
	assert.Equal(t, state_models.OrderShipped, orders[1].Status, "remote content wins")
	assert.Equal(t, "7d4c8a8e-1a0b-4c3e-9a55-5a6f1e0b9c21", orders[2].ID)
}

func TestMergeAnalysesSortsAndCaps(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.AddAnalysis(state_models.SkinAnalysis{ID: "analysis-newest", Date: base.Add(100 * time.Hour).Format(time.RFC3339)})
	s.AddAnalysis(state_models.SkinAnalysis{ID: "analysis-oldest", Date: base.Add(-100 * time.Hour).Format(time.RFC3339)})

	var remote []state_models.SkinAnalysis
	for i := 0; i < MaxAnalyses; i++ {
		remote = append(remote, state_models.SkinAnalysis{
			ID:   fmt.Sprintf("00000000-0000-4000-8000-%012d", i),
			Date: base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	require.True(t, s.MergeAnalyses(remote, nil))

	list := s.Analyses()
	require.Len(t, list, MaxAnalyses)
	assert.Equal(t, "analysis-newest", list[0].ID)
	assert.Equal(t, remote[MaxAnalyses-1].ID, list[1].ID)
	for _, a := range list {
		assert.NotEqual(t, "analysis-oldest", a.ID)
	}
}

func TestMergeSkipsWhenNoLongerValid(t *testing.T) {
	s, _ := newTestStore(t)
	stale := func() bool { return false }

	assert.False(t, s.MergeAnalyses([]state_models.SkinAnalysis{{ID: "analysis-1"}}, stale))
	assert.False(t, s.MergeOrders([]state_models.Order{{ID: "order-1"}}, stale))
	assert.False(t, s.MergeProfile(&state_models.UserProfile{ID: "u1", OnboardingCompleted: true}, nil, stale))

	st := s.State()
	assert.Empty(t, st.Analyses)
	assert.Empty(t, st.Orders)
	assert.Nil(t, st.User)
	assert.False(t, st.HasSeenOnboarding)
}

func TestMergeProfileSubscription(t *testing.T) {
	s, _ := newTestStore(t)
	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(90 * 24 * time.Hour)

	require.True(t, s.MergeProfile(&state_models.UserProfile{ID: "u1", OnboardingCompleted: true},
		&state_models.Subscription{IsActive: true, Plan: state_models.PlanMonthly, ExpiresAt: &soon}, nil))
	assert.True(t, s.State().HasSeenOnboarding)
	assert.Equal(t, state_models.PlanMonthly, s.Subscription().Plan, "no local expiry yet")

	s.SetSubscription(state_models.Subscription{IsActive: true, Plan: state_models.PlanYearly, ExpiresAt: &later})
	s.MergeProfile(&state_models.UserProfile{ID: "u1"},
		&state_models.Subscription{IsActive: true, Plan: state_models.PlanMonthly, ExpiresAt: &soon}, nil)
	assert.Equal(t, state_models.PlanYearly, s.Subscription().Plan, "later local expiry wins")
}

func TestSubscriptionStaysActiveUntilChanged(t *testing.T) {
	s, _ := newTestStore(t)
	expires := time.Now().Add(365 * 24 * time.Hour)

	s.SetSubscription(state_models.Subscription{IsActive: true, Plan: state_models.PlanYearly, ExpiresAt: &expires})

	sub := s.Subscription()
	assert.True(t, sub.IsActive)
	assert.True(t, sub.ActiveAt(time.Now()))

	// the stored flag is not re-validated against the clock
	assert.False(t, sub.ActiveAt(expires.Add(time.Hour)))
	assert.True(t, s.Subscription().IsActive)

	s.Reset()
	assert.False(t, s.Subscription().IsActive)
}

func TestUpdateUserWithoutProfileIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	name := "Camille"
	s.UpdateUser(state_models.UserPatch{Name: &name})
	assert.Nil(t, s.User())

	s.SetUser(&state_models.UserProfile{ID: "u1", Name: "C"})
	s.UpdateUser(state_models.UserPatch{Name: &name, Concerns: []string{"cernes"}})
	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, "Camille", u.Name)
	assert.Equal(t, []string{"cernes"}, u.Concerns)
}

func TestReadsReturnCopies(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddAnalysis(state_models.SkinAnalysis{ID: "a1", Recommendations: []string{"one"}})

	list := s.Analyses()
	list[0].Recommendations[0] = "mutated"
	list[0].ID = "changed"

	fresh := s.Analyses()
	assert.Equal(t, "a1", fresh[0].ID)
	assert.Equal(t, "one", fresh[0].Recommendations[0])
}

func TestHydrateRestoresPersistedState(t *testing.T) {
	s, storage := newTestStore(t)
	s.AddAnalysis(state_models.SkinAnalysis{ID: "a1"})
	s.AddToCart("gua-sha", 2)
	s.SetHasSeenIntro(true)

	restored := New(storage)
	require.NoError(t, restored.Hydrate(context.Background()))

	st := restored.State()
	require.Len(t, st.Analyses, 1)
	assert.Equal(t, "a1", st.Analyses[0].ID)
	assert.Equal(t, 2, restored.CartItemCount())
	assert.True(t, st.HasSeenIntro)
}

func TestHydrateDiscardsOversizedBlob(t *testing.T) {
	storage := NewMemoryStorage()
	big := `{"analyses":[],"note":"` + strings.Repeat("a", DefaultMaxBytes) + `"}`
	require.NoError(t, storage.Save(context.Background(), DefaultKey, []byte(big)))

	s := New(storage)
	require.NoError(t, s.Hydrate(context.Background()))

	assert.False(t, storage.Has(DefaultKey))
	assert.Empty(t, s.Analyses())
	assert.Nil(t, s.User())
}

func TestHydrateDiscardsCorruptBlob(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(context.Background(), DefaultKey, []byte(`{"analyses":[{"id":`)))

	s := New(storage)
	require.NoError(t, s.Hydrate(context.Background()))

	assert.False(t, storage.Has(DefaultKey))
	assert.Empty(t, s.State().Analyses)
}

func TestHydrateDiscardsUnreadableBlob(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(context.Background(), DefaultKey, []byte(`{}`)))
	storage.LoadErr = errors.New("disk I/O error")

	s := New(storage)
	require.NoError(t, s.Hydrate(context.Background()))

	storage.LoadErr = nil
	assert.False(t, storage.Has(DefaultKey))
}

func TestPersistFailureDoesNotBreakLocalCommit(t *testing.T) {
	s, storage := newTestStore(t)
	storage.SaveErr = errors.New("quota exceeded")

	s.AddAnalysis(state_models.SkinAnalysis{ID: "a1"})

	require.Len(t, s.Analyses(), 1)
}

func TestResetKeepsBackingBlobUntilPurged(t *testing.T) {
	s, storage := newTestStore(t)
	s.AddOrder(state_models.Order{ID: "order-1"})

	s.Reset()
	assert.True(t, storage.Has(DefaultKey))
	assert.Empty(t, persisted(t, storage).Orders)

	require.NoError(t, s.Purge(context.Background()))
	assert.False(t, storage.Has(DefaultKey))
}
