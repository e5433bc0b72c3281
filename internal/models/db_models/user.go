package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// User is the profile row keyed by the auth user id.
type User struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email                 string         `gorm:"not null" json:"email"`
	Name                  *string        `json:"name"`
	AvatarURL             *string        `json:"avatar_url"`
	SkinType              *string        `json:"skin_type"`
	DarkCircleType        *string        `json:"dark_circle_type"`
	Goals                 pq.StringArray `gorm:"type:text[]" json:"goals"`
	QuizAnswers           datatypes.JSON `gorm:"type:jsonb" json:"quiz_answers"`
	OnboardingCompleted   bool           `gorm:"not null" json:"onboarding_completed"`
	SubscriptionPlan      *string        `json:"subscription_plan"`
	SubscriptionExpiresAt *time.Time     `json:"subscription_expires_at"`
	RoutineID             *string        `json:"routine_id"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// ProfileUpdate lists the mutable profile columns. Nil fields are not written.
type ProfileUpdate struct {
	Name                *string
	AvatarURL           *string
	SkinType            *string
	DarkCircleType      *string
	Goals               []string
	QuizAnswers         map[string]string
	OnboardingCompleted *bool
}

// Columns renders the update as a column map usable by gorm Updates and PostgREST PATCH.
func (p ProfileUpdate) Columns(now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.AvatarURL != nil {
		cols["avatar_url"] = *p.AvatarURL
	}
	if p.SkinType != nil {
		cols["skin_type"] = *p.SkinType
	}
	if p.DarkCircleType != nil {
		cols["dark_circle_type"] = *p.DarkCircleType
	}
	if p.Goals != nil {
		cols["goals"] = pq.StringArray(p.Goals)
	}
	if p.QuizAnswers != nil {
		cols["quiz_answers"] = datatypes.JSONMap(toAnyMap(p.QuizAnswers))
	}
	if p.OnboardingCompleted != nil {
		cols["onboarding_completed"] = *p.OnboardingCompleted
	}
	return cols
}

func toAnyMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
