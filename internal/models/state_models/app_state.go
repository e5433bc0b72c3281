package state_models

import "time"

type SkinType string

const (
	SkinTypeDry         SkinType = "dry"
	SkinTypeOily        SkinType = "oily"
	SkinTypeCombination SkinType = "combination"
	SkinTypeNormal      SkinType = "normal"
	SkinTypeSensitive   SkinType = "sensitive"
)

type UserProfile struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	AvatarURI           string            `json:"avatarUri,omitempty"`
	SkinType            SkinType          `json:"skinType,omitempty"`
	Concerns            []string          `json:"concerns"`
	OnboardingCompleted bool              `json:"onboardingCompleted"`
	QuizAnswers         map[string]string `json:"quizAnswers"`
}

// UserPatch carries a partial profile update; nil fields are left untouched.
type UserPatch struct {
	Name                *string           `json:"name,omitempty"`
	Email               *string           `json:"email,omitempty"`
	AvatarURI           *string           `json:"avatarUri,omitempty"`
	SkinType            *SkinType         `json:"skinType,omitempty"`
	Concerns            []string          `json:"concerns,omitempty"`
	OnboardingCompleted *bool             `json:"onboardingCompleted,omitempty"`
	QuizAnswers         map[string]string `json:"quizAnswers,omitempty"`
}

type SubscriptionPlan string

const (
	PlanMonthly SubscriptionPlan = "monthly"
	PlanYearly  SubscriptionPlan = "yearly"
)

type Subscription struct {
	IsActive  bool             `json:"isActive"`
	Plan      SubscriptionPlan `json:"plan,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	RoutineID string           `json:"routineId,omitempty"`
}

// ActiveAt derives activity from the expiry. The persisted IsActive flag may lag behind it.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.After(now)
}

type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
)

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// Order is an immutable snapshot of the cart taken at checkout. Amounts are in cents.
type Order struct {
	ID             string      `json:"id"`
	Date           string      `json:"date"`
	Status         OrderStatus `json:"status"`
	Items          []OrderItem `json:"items"`
	Total          int64       `json:"total"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
}

type AppState struct {
	User              *UserProfile       `json:"user"`
	OnboardingStep    int                `json:"onboardingStep"`
	Analyses          []SkinAnalysis     `json:"analyses"`
	FullFaceAnalyses  []FullFaceAnalysis `json:"fullFaceAnalyses"`
	Subscription      Subscription       `json:"subscription"`
	Orders            []Order            `json:"orders"`
	Cart              []CartItem         `json:"cart"`
	HasSeenOnboarding bool               `json:"hasSeenOnboarding"`
	HasSeenIntro      bool               `json:"hasSeenIntro"`
}

func InitialState() AppState {
	return AppState{
		Analyses:         []SkinAnalysis{},
		FullFaceAnalyses: []FullFaceAnalysis{},
		Orders:           []Order{},
		Cart:             []CartItem{},
	}
}
