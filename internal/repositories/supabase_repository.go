package repositories

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"inos/internal/infra/supabase"
	"inos/internal/models/db_models"
	"inos/pkg/utils"
)

// NewSupabaseBackend serves every table over PostgREST and photos from the storage bucket.
// Calls carry the user token found in the context (supabase.WithAccessToken).
func NewSupabaseBackend(client *supabase.Client) *Backend {
	return &Backend{
		Users:    &supabaseUserRepository{client: client},
		Analyses: &supabaseAnalysisRepository{client: client},
		Orders:   &supabaseOrderRepository{client: client},
		Payments: &supabasePaymentRepository{client: client},
		Carts:    &supabaseCartRepository{client: client},
		Photos:   client,
	}
}

func translateAPIError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && apiErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, utils.ErrDuplicateRecord)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func byUser(userID uuid.UUID, limit int) url.Values {
	q := url.Values{
		"user_id": {supabase.Eq(userID.String())},
		"select":  {"*"},
		"order":   {"created_at.desc"},
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

type supabaseUserRepository struct {
	client *supabase.Client
}

func (s *supabaseUserRepository) EnsureProfile(ctx context.Context, id uuid.UUID, email, name string) error {
	existing, err := s.FindById(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	row := map[string]any{"id": id, "email": email, "name": nil}
	if name != "" {
		row["name"] = name
	}
	err = translateAPIError("ensure profile", s.client.Insert(ctx, "users", row, nil))
	if errors.Is(err, utils.ErrDuplicateRecord) {
		// created concurrently by another sync
		return nil
	}
	return err
}

func (s *supabaseUserRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.User, error) {
	var rows []db_models.User
	q := url.Values{"id": {supabase.Eq(id.String())}, "select": {"*"}, "limit": {"1"}}
	if err := s.client.Select(ctx, "users", q, &rows); err != nil {
		return nil, translateAPIError("find user", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *supabaseUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update db_models.ProfileUpdate) error {
	filter := url.Values{"id": {supabase.Eq(id.String())}}
	return translateAPIError("update profile", s.client.Update(ctx, "users", filter, update.Columns(time.Now().UTC()), nil))
}

func (s *supabaseUserRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, plan string, expiresAt time.Time) error {
	filter := url.Values{"id": {supabase.Eq(id.String())}}
	patch := map[string]any{
		"subscription_plan":       plan,
		"subscription_expires_at": expiresAt.UTC(),
		"updated_at":              time.Now().UTC(),
	}
	return translateAPIError("update subscription", s.client.Update(ctx, "users", filter, patch, nil))
}

type supabaseAnalysisRepository struct {
	client *supabase.Client
}

func (s *supabaseAnalysisRepository) InsertSkinAnalysis(ctx context.Context, row *db_models.SkinAnalysis) error {
	row.Stamp(time.Now().UTC())
	return translateAPIError("insert skin analysis", s.client.Insert(ctx, "skin_analyses", row, nil))
}

func (s *supabaseAnalysisRepository) InsertFullFaceAnalysis(ctx context.Context, row *db_models.FullFaceAnalysis) error {
	row.Stamp(time.Now().UTC())
	return translateAPIError("insert full face analysis", s.client.Insert(ctx, "full_face_analyses", row, nil))
}

func (s *supabaseAnalysisRepository) ListSkinAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.SkinAnalysis, error) {
	var rows []db_models.SkinAnalysis
	if err := s.client.Select(ctx, "skin_analyses", byUser(userID, limit), &rows); err != nil {
		return nil, translateAPIError("list skin analyses", err)
	}
	return rows, nil
}

func (s *supabaseAnalysisRepository) ListFullFaceAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.FullFaceAnalysis, error) {
	var rows []db_models.FullFaceAnalysis
	if err := s.client.Select(ctx, "full_face_analyses", byUser(userID, limit), &rows); err != nil {
		return nil, translateAPIError("list full face analyses", err)
	}
	return rows, nil
}

type supabaseOrderRepository struct {
	client *supabase.Client
}

func (s *supabaseOrderRepository) Insert(ctx context.Context, order *db_models.Order) error {
	order.Stamp(time.Now().UTC())
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	return translateAPIError("insert order", s.client.Insert(ctx, "orders", order, nil))
}

func (s *supabaseOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Order, error) {
	var rows []db_models.Order
	if err := s.client.Select(ctx, "orders", byUser(userID, limit), &rows); err != nil {
		return nil, translateAPIError("list orders", err)
	}
	return rows, nil
}

type supabasePaymentRepository struct {
	client *supabase.Client
}

func (s *supabasePaymentRepository) Insert(ctx context.Context, payment *db_models.Payment) error {
	payment.Stamp(time.Now().UTC())
	return translateAPIError("insert payment", s.client.Insert(ctx, "payments", payment, nil))
}

type supabaseCartRepository struct {
	client *supabase.Client
}

func (s *supabaseCartRepository) Upsert(ctx context.Context, cart *db_models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	cart.UpdatedAt = time.Now().UTC()
	// id is left out so an existing row keeps its own
	row := map[string]any{
		"user_id":    cart.UserID,
		"items":      cart.Items,
		"updated_at": cart.UpdatedAt,
	}
	return translateAPIError("upsert cart", s.client.Upsert(ctx, "carts", "user_id", row, nil))
}

func (s *supabaseCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*db_models.Cart, error) {
	var rows []db_models.Cart
	q := url.Values{"user_id": {supabase.Eq(userID.String())}, "select": {"*"}, "limit": {"1"}}
	if err := s.client.Select(ctx, "carts", q, &rows); err != nil {
		return nil, translateAPIError("find cart", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
