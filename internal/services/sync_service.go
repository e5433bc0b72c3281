package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"inos/internal/infra/supabase"
	"inos/internal/models/db_models"
	"inos/internal/models/response_models"
	"inos/internal/models/state_models"
	"inos/internal/repositories"
	"inos/internal/store"
	"inos/pkg/metrics"
	"inos/pkg/utils"
)

const (
	photoFolder = "analyses"

	MonthlyPriceCents int64 = 1299
	YearlyPriceCents  int64 = 8999
)

// ActiveSession is the signed-in identity remote writes are made for.
type ActiveSession struct {
	UserID      string
	Email       string
	AccessToken string
}

type SessionReader interface {
	Active() (ActiveSession, bool)
}

// ScanInput is the captured photo. ImageBase64 may carry a data: URL prefix.
type ScanInput struct {
	PhotoURI    string
	ImageBase64 string
	MimeType    string
}

type OnboardingInput struct {
	Name           string
	Email          string
	SkinType       state_models.SkinType
	DarkCircleType string
	Goal           string
	Lifestyle      []string
	QuizAnswers    map[string]string
}

type SyncServiceInterface interface {
	CompleteScan(ctx context.Context, in ScanInput, result response_models.DarkCircleAnalysisResult) state_models.SkinAnalysis
	CompleteFullFaceScan(ctx context.Context, in ScanInput, result response_models.FullFaceAnalysisResult) state_models.FullFaceAnalysis
	Checkout(ctx context.Context, shipping *db_models.ShippingAddress) (state_models.Order, error)
	Subscribe(ctx context.Context, plan state_models.SubscriptionPlan) (state_models.Subscription, error)
	CompleteOnboarding(ctx context.Context, in OnboardingInput) state_models.UserProfile
	SaveCart(ctx context.Context)
	RestoreRemote(ctx context.Context) error
	ScheduleRestore(ctx context.Context)
	Wait()
}

// SyncService commits every action to the local store first, then mirrors it to the
// remote backend once, in the background. Remote failures are logged and counted only.
type SyncService struct {
	store    *store.Store
	catalog  CatalogServiceInterface
	backend  *repositories.Backend
	sessions SessionReader
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	wg sync.WaitGroup
}

// NewSyncService builds the coordinator. backend may be nil for a local-only setup.
func NewSyncService(
	st *store.Store,
	catalog CatalogServiceInterface,
	backend *repositories.Backend,
	sessions SessionReader,
	logger *zap.Logger,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		store:    st,
		catalog:  catalog,
		backend:  backend,
		sessions: sessions,
		logger:   logger.Named("sync"),
		metrics:  m,
		now:      time.Now,
	}
}

// Wait blocks until every background sync started so far has returned.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// remote runs fn in a tracked goroutine when a backend and a session are available.
// The goroutine outlives ctx's cancellation but keeps its values.
func (s *SyncService) remote(ctx context.Context, entity string, fn func(ctx context.Context, sess ActiveSession, userID uuid.UUID) error) {
	if s.backend == nil || s.sessions == nil {
		return
	}
	sess, ok := s.sessions.Active()
	if !ok {
		s.metrics.SyncAttempt(entity, "skipped")
		return
	}

	ctx = supabase.WithAccessToken(context.WithoutCancel(ctx), sess.AccessToken)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		userID, err := uuid.Parse(sess.UserID)
		if err == nil {
			err = fn(ctx, sess, userID)
		} else {
			err = fmt.Errorf("session user id: %w", err)
		}

		if err != nil {
			s.logger.Warn("remote sync failed",
				zap.String("entity", entity),
				zap.String("user_id", sess.UserID),
				zap.Error(err))
			s.metrics.SyncAttempt(entity, "failed")
			return
		}
		s.metrics.SyncAttempt(entity, "succeeded")
	}()
}

func (s *SyncService) ensureProfile(ctx context.Context, sess ActiveSession, userID uuid.UUID) error {
	name := ""
	if u := s.store.User(); u != nil {
		name = u.Name
	}
	return s.backend.Users.EnsureProfile(ctx, userID, sess.Email, name)
}

// uploadPhoto returns the remote URL for the scan photo, or "" when there is nothing to upload.
func (s *SyncService) uploadPhoto(ctx context.Context, userID uuid.UUID, in ScanInput, takenAt time.Time) (string, error) {
	if state_models.IsRemoteURI(in.PhotoURI) {
		return in.PhotoURI, nil
	}
	if s.backend.Photos == nil || in.ImageBase64 == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(strings.TrimSpace(in.ImageBase64), ""))
	if err != nil {
		return "", errors.Join(utils.ErrInvalidImagePayload, err)
	}
	mime := in.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return s.backend.Photos.Upload(ctx, supabase.PhotoPath(userID.String(), photoFolder, takenAt), data, mime)
}

func (s *SyncService) CompleteScan(ctx context.Context, in ScanInput, result response_models.DarkCircleAnalysisResult) state_models.SkinAnalysis {
	data := result.Data
	if data == nil {
		data = &response_models.DarkCircleData{DarkCircleType: state_models.DarkCircleMixed, Intensity: state_models.IntensityModerate}
	}

	now := s.now().UTC()
	entry := state_models.SkinAnalysis{
		ID:              utils.NewID("analysis"),
		Date:            now.Format(time.RFC3339),
		PhotoURI:        in.PhotoURI,
		DarkCircleType:  data.DarkCircleType,
		Intensity:       data.Intensity,
		Score:           data.Score,
		LeftEyeScore:    data.LeftEyeScore,
		RightEyeScore:   data.RightEyeScore,
		Recommendations: append([]string(nil), data.Recommendations...),
		Analysis:        data.Analysis,
		Simulated:       data.Simulated,
	}
	s.store.AddAnalysis(entry)
	if !state_models.IsRemoteURI(entry.PhotoURI) {
		entry.PhotoURI = ""
	}

	s.remote(ctx, "skin_analysis", func(ctx context.Context, sess ActiveSession, userID uuid.UUID) error {
		if err := s.ensureProfile(ctx, sess, userID); err != nil {
			return err
		}
		photoURL, err := s.uploadPhoto(ctx, userID, in, now)
		if err != nil {
			return err
		}
		if photoURL != "" {
			s.store.UpdateAnalysisPhotoURL(entry.ID, photoURL)
		}
		return s.backend.Analyses.InsertSkinAnalysis(ctx, &db_models.SkinAnalysis{
			BaseModel:       db_models.BaseModel{ID: utils.RemoteID(entry.ID), CreatedAt: now},
			UserID:          userID,
			PhotoURL:        optional(photoURL),
			DarkCircleType:  string(entry.DarkCircleType),
			Intensity:       string(entry.Intensity),
			Score:           entry.Score,
			LeftEyeScore:    entry.LeftEyeScore,
			RightEyeScore:   entry.RightEyeScore,
			Recommendations: pq.StringArray(entry.Recommendations),
		})
	})

	return entry
}

func (s *SyncService) CompleteFullFaceScan(ctx context.Context, in ScanInput, result response_models.FullFaceAnalysisResult) state_models.FullFaceAnalysis {
	var entry state_models.FullFaceAnalysis
	if result.Data != nil {
		entry = *result.Data
	}

	now := s.now().UTC()
	entry.ID = utils.NewID("full")
	entry.Date = now.Format(time.RFC3339)
	entry.PhotoURI = in.PhotoURI
	s.store.AddFullFaceAnalysis(entry)
	if !state_models.IsRemoteURI(entry.PhotoURI) {
		entry.PhotoURI = ""
	}

	s.remote(ctx, "full_face_analysis", func(ctx context.Context, sess ActiveSession, userID uuid.UUID) error {
		if err := s.ensureProfile(ctx, sess, userID); err != nil {
			return err
		}
		photoURL, err := s.uploadPhoto(ctx, userID, in, now)
		if err != nil {
			return err
		}
		if photoURL != "" {
			s.store.UpdateFullFacePhotoURL(entry.ID, photoURL)
		}
		row, err := fullFaceRow(userID, photoURL, entry)
		if err != nil {
			return err
		}
		return s.backend.Analyses.InsertFullFaceAnalysis(ctx, row)
	})

	return entry
}

func fullFaceRow(userID uuid.UUID, photoURL string, f state_models.FullFaceAnalysis) (*db_models.FullFaceAnalysis, error) {
	zones := map[string]state_models.FaceZoneScores{}
	for i, m := range f.Metrics() {
		zones[metricSpecs[i].key] = m.Zones
	}
	raw, err := json.Marshal(zones)
	if err != nil {
		return nil, fmt.Errorf("encode zones: %w", err)
	}

	return &db_models.FullFaceAnalysis{
		UserID:                userID,
		PhotoURL:              optional(photoURL),
		PerceivedAge:          f.PerceivedAge,
		EyeAge:                f.EyeAge,
		SkinTone:              string(f.SkinTone),
		ITAScore:              f.ITAScore,
		AcneScore:             f.AcneScore.Value,
		AcneCondition:         string(f.AcneScore.Condition),
		HydrationScore:        f.HydrationScore.Value,
		HydrationCondition:    string(f.HydrationScore.Condition),
		LinesScore:            f.LinesScore.Value,
		LinesCondition:        string(f.LinesScore.Condition),
		PigmentationScore:     f.PigmentationScore.Value,
		PigmentationCondition: string(f.PigmentationScore.Condition),
		PoresScore:            f.PoresScore.Value,
		PoresCondition:        string(f.PoresScore.Condition),
		RednessScore:          f.RednessScore.Value,
		RednessCondition:      string(f.RednessScore.Condition),
		TranslucencyScore:     f.TranslucencyScore.Value,
		TranslucencyCondition: string(f.TranslucencyScore.Condition),
		UniformnessScore:      f.UniformnessScore.Value,
		UniformnessCondition:  string(f.UniformnessScore.Condition),
		EyeAreaScore:          f.EyeAreaCondition.Value,
		EyeAreaCondition:      string(f.EyeAreaCondition.Condition),
		OverallScore:          f.OverallScore,
		PriorityAreas:         pq.StringArray(f.PriorityAreas),
		Recommendations:       pq.StringArray(f.Recommendations),
		ZonesData:             datatypes.JSON(raw),
	}, nil
}

// Checkout turns the cart into an order. The cart is taken in one write, so a
// concurrent checkout finds it empty and lines added meanwhile stay for the next
// order. It only fails when there is nothing to buy, and then the taken lines
// go back into the cart.
func (s *SyncService) Checkout(ctx context.Context, shipping *db_models.ShippingAddress) (state_models.Order, error) {
	items := s.store.TakeCart()
	lines, view, err := s.catalog.OrderSnapshot(items)
	if err != nil {
		s.store.ReturnToCart(items)
		return state_models.Order{}, err
	}

	now := s.now().UTC()
	order := state_models.Order{
		ID:     utils.NewID("order"),
		Date:   now.Format(time.RFC3339),
		Status: state_models.OrderPending,
		Items:  lines,
		Total:  view.Total,
	}
	s.store.AddOrder(order)

	s.remote(ctx, "order", func(ctx context.Context, _ ActiveSession, userID uuid.UUID) error {
		row := &db_models.Order{
			BaseModel: db_models.BaseModel{ID: utils.RemoteID(order.ID), CreatedAt: now},
			UserID:    userID,
			Status:    db_models.OrderStatusPending,
			Subtotal:  view.Subtotal,
			Shipping:  view.Shipping,
			Total:     view.Total,
		}
		for _, l := range view.Items {
			row.Items = append(row.Items, db_models.OrderLine{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				Quantity:  l.Quantity,
				Price:     l.Product.Price,
			})
		}
		if shipping != nil {
			addr := datatypes.NewJSONType(*shipping)
			row.ShippingAddress = &addr
		}
		if err := s.backend.Orders.Insert(ctx, row); err != nil {
			return err
		}

		orderID := row.ID
		return s.backend.Payments.Insert(ctx, &db_models.Payment{
			UserID:   userID,
			OrderID:  &orderID,
			Type:     db_models.PaymentTypeOrder,
			Amount:   view.Total,
			Currency: Currency,
			Status:   db_models.PaymentStatusSucceeded,
		})
	})

	return order, nil
}

func PlanTerms(plan state_models.SubscriptionPlan) (time.Duration, int64, error) {
	switch plan {
	case state_models.PlanMonthly:
		return 30 * 24 * time.Hour, MonthlyPriceCents, nil
	case state_models.PlanYearly:
		return 365 * 24 * time.Hour, YearlyPriceCents, nil
	default:
		return 0, 0, utils.ErrInvalidPlan
	}
}

func (s *SyncService) Subscribe(ctx context.Context, plan state_models.SubscriptionPlan) (state_models.Subscription, error) {
	period, price, err := PlanTerms(plan)
	if err != nil {
		return state_models.Subscription{}, err
	}

	expiresAt := s.now().UTC().Add(period)
	sub := state_models.Subscription{
		IsActive:  true,
		Plan:      plan,
		ExpiresAt: &expiresAt,
		RoutineID: s.store.Subscription().RoutineID,
	}
	s.store.SetSubscription(sub)

	s.remote(ctx, "subscription", func(ctx context.Context, _ ActiveSession, userID uuid.UUID) error {
		if err := s.backend.Users.UpdateSubscription(ctx, userID, string(plan), expiresAt); err != nil {
			return err
		}
		return s.backend.Payments.Insert(ctx, &db_models.Payment{
			UserID:   userID,
			Type:     db_models.PaymentTypeSubscription,
			Amount:   price,
			Currency: Currency,
			Status:   db_models.PaymentStatusSucceeded,
		})
	})

	return sub, nil
}

func (s *SyncService) CompleteOnboarding(ctx context.Context, in OnboardingInput) state_models.UserProfile {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Utilisateur"
	}

	var active ActiveSession
	signedIn := false
	if s.sessions != nil {
		active, signedIn = s.sessions.Active()
	}

	id := ""
	switch {
	case signedIn:
		id = active.UserID
	case s.store.User() != nil:
		id = s.store.User().ID
	default:
		id = utils.NewID("user")
	}
	email := in.Email
	if email == "" && signedIn {
		email = active.Email
	}

	profile := state_models.UserProfile{
		ID:                  id,
		Name:                name,
		Email:               email,
		SkinType:            in.SkinType,
		Concerns:            append([]string{"dark_circles"}, in.Lifestyle...),
		OnboardingCompleted: true,
		QuizAnswers:         in.QuizAnswers,
	}
	s.store.SetUser(&profile)
	s.store.SetHasSeenOnboarding(true)

	goals := []string{}
	if in.Goal != "" {
		goals = append(goals, in.Goal)
	}
	goals = append(goals, in.Lifestyle...)

	s.remote(ctx, "profile", func(ctx context.Context, sess ActiveSession, userID uuid.UUID) error {
		if err := s.backend.Users.EnsureProfile(ctx, userID, sess.Email, name); err != nil {
			return err
		}
		done := true
		update := db_models.ProfileUpdate{
			Name:                &name,
			Goals:               goals,
			QuizAnswers:         in.QuizAnswers,
			OnboardingCompleted: &done,
		}
		if in.SkinType != "" {
			skin := string(in.SkinType)
			update.SkinType = &skin
		}
		if in.DarkCircleType != "" {
			update.DarkCircleType = &in.DarkCircleType
		}
		return s.backend.Users.UpdateProfile(ctx, userID, update)
	})

	return profile
}

// SaveCart mirrors the current cart to the backend.
func (s *SyncService) SaveCart(ctx context.Context) {
	items := s.store.Cart()
	s.remote(ctx, "cart", func(ctx context.Context, _ ActiveSession, userID uuid.UUID) error {
		lines := make([]db_models.CartLine, 0, len(items))
		for _, it := range items {
			lines = append(lines, db_models.CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		return s.backend.Carts.Upsert(ctx, &db_models.Cart{UserID: userID, Items: lines})
	})
}

// ScheduleRestore runs RestoreRemote in the background.
func (s *SyncService) ScheduleRestore(ctx context.Context) {
	s.remote(ctx, "restore", func(ctx context.Context, _ ActiveSession, _ uuid.UUID) error {
		return s.RestoreRemote(ctx)
	})
}

// RestoreRemote pulls the profile, the latest analyses and the orders of the signed-in
// user and merges them into local state. Local entries missing remotely are kept.
// Nothing is written once the session has changed, so a restore that returns after
// a sign-out leaves the signed-out state alone.
func (s *SyncService) RestoreRemote(ctx context.Context) error {
	if s.backend == nil {
		return utils.ErrBackendUnavailable
	}
	var sess ActiveSession
	ok := false
	if s.sessions != nil {
		sess, ok = s.sessions.Active()
	}
	if !ok {
		return utils.ErrNotAuthenticated
	}
	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return fmt.Errorf("session user id: %w", err)
	}
	ctx = supabase.WithAccessToken(ctx, sess.AccessToken)

	// checked under the store lock on every write
	valid := func() bool { return s.stillSignedIn(sess) }
	var errs []error

	user, err := s.backend.Users.FindById(ctx, userID)
	switch {
	case err != nil:
		errs = append(errs, err)
	case user != nil:
		if !s.applyProfile(user, valid) {
			return errors.Join(append(errs, errStaleRestore)...)
		}
	}

	analyses, err := s.backend.Analyses.ListSkinAnalyses(ctx, userID, store.MaxAnalyses)
	if err != nil {
		errs = append(errs, err)
	} else if len(analyses) > 0 {
		local := make([]state_models.SkinAnalysis, 0, len(analyses))
		for _, row := range analyses {
			local = append(local, skinAnalysisFromRow(row))
		}
		if !s.store.MergeAnalyses(local, valid) {
			return errors.Join(append(errs, errStaleRestore)...)
		}
	}

	orders, err := s.backend.Orders.ListByUser(ctx, userID, 50)
	if err != nil {
		errs = append(errs, err)
	} else if len(orders) > 0 {
		local := make([]state_models.Order, 0, len(orders))
		for _, row := range orders {
			local = append(local, orderFromRow(row))
		}
		if !s.store.MergeOrders(local, valid) {
			return errors.Join(append(errs, errStaleRestore)...)
		}
	}

	return errors.Join(errs...)
}

var errStaleRestore = errors.New("session changed during restore")

// stillSignedIn runs under the store lock and must not touch the store.
func (s *SyncService) stillSignedIn(sess ActiveSession) bool {
	cur, ok := s.sessions.Active()
	return ok && cur.UserID == sess.UserID
}

func (s *SyncService) applyProfile(u *db_models.User, valid func() bool) bool {
	profile := state_models.UserProfile{
		ID:                  u.ID.String(),
		Name:                deref(u.Name),
		Email:               u.Email,
		AvatarURI:           deref(u.AvatarURL),
		SkinType:            state_models.SkinType(deref(u.SkinType)),
		Concerns:            append([]string{}, u.Goals...),
		OnboardingCompleted: u.OnboardingCompleted,
		QuizAnswers:         map[string]string{},
	}
	if len(u.QuizAnswers) > 0 {
		var answers map[string]any
		if err := json.Unmarshal(u.QuizAnswers, &answers); err == nil {
			for k, v := range answers {
				profile.QuizAnswers[k] = fmt.Sprint(v)
			}
		}
	}

	var sub *state_models.Subscription
	plan := deref(u.SubscriptionPlan)
	if plan != "" && u.SubscriptionExpiresAt != nil {
		expires := u.SubscriptionExpiresAt.UTC()
		sub = &state_models.Subscription{
			IsActive:  expires.After(s.now()),
			ExpiresAt: &expires,
			RoutineID: deref(u.RoutineID),
		}
		if plan != "free" {
			sub.Plan = state_models.SubscriptionPlan(plan)
		}
	}
	// a purchase made locally but not yet mirrored expires later and is kept
	return s.store.MergeProfile(&profile, sub, valid)
}

func skinAnalysisFromRow(row db_models.SkinAnalysis) state_models.SkinAnalysis {
	return state_models.SkinAnalysis{
		ID:              row.ID.String(),
		Date:            row.CreatedAt.UTC().Format(time.RFC3339),
		PhotoURI:        deref(row.PhotoURL),
		DarkCircleType:  validDarkCircleType(row.DarkCircleType),
		Intensity:       validIntensity(row.Intensity),
		Score:           row.Score,
		LeftEyeScore:    row.LeftEyeScore,
		RightEyeScore:   row.RightEyeScore,
		Recommendations: append([]string{}, row.Recommendations...),
	}
}

func orderFromRow(row db_models.Order) state_models.Order {
	status := state_models.OrderPending
	switch row.Status {
	case db_models.OrderStatusShipped:
		status = state_models.OrderShipped
	case db_models.OrderStatusDelivered:
		status = state_models.OrderDelivered
	}

	items := make([]state_models.OrderItem, 0, len(row.Items))
	for _, l := range row.Items {
		items = append(items, state_models.OrderItem{Name: l.Name, Quantity: l.Quantity, Price: l.Price})
	}
	return state_models.Order{
		ID:             row.ID.String(),
		Date:           row.CreatedAt.UTC().Format(time.RFC3339),
		Status:         status,
		Items:          items,
		Total:          row.Total,
		TrackingNumber: deref(row.TrackingNumber),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
