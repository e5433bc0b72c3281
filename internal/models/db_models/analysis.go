package db_models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type SkinAnalysis struct {
	BaseModel
	UserID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	PhotoURL        *string        `json:"photo_url"`
	DarkCircleType  string         `gorm:"not null" json:"dark_circle_type"`
	Intensity       string         `gorm:"not null" json:"intensity"`
	Score           int            `json:"score"`
	LeftEyeScore    int            `json:"left_eye_score"`
	RightEyeScore   int            `json:"right_eye_score"`
	Recommendations pq.StringArray `gorm:"type:text[]" json:"recommendations"`
}

func (SkinAnalysis) TableName() string { return "skin_analyses" }

// FullFaceAnalysis flattens the nine metrics into score/condition columns;
// zone breakdowns go to zones_data.
type FullFaceAnalysis struct {
	BaseModel
	UserID                uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	PhotoURL              *string        `json:"photo_url"`
	PerceivedAge          int            `json:"perceived_age"`
	EyeAge                int            `json:"eye_age"`
	SkinTone              string         `json:"skin_tone"`
	ITAScore              int            `json:"ita_score"`
	AcneScore             int            `json:"acne_score"`
	AcneCondition         string         `json:"acne_condition"`
	HydrationScore        int            `json:"hydration_score"`
	HydrationCondition    string         `json:"hydration_condition"`
	LinesScore            int            `json:"lines_score"`
	LinesCondition        string         `json:"lines_condition"`
	PigmentationScore     int            `json:"pigmentation_score"`
	PigmentationCondition string         `json:"pigmentation_condition"`
	PoresScore            int            `json:"pores_score"`
	PoresCondition        string         `json:"pores_condition"`
	RednessScore          int            `json:"redness_score"`
	RednessCondition      string         `json:"redness_condition"`
	TranslucencyScore     int            `json:"translucency_score"`
	TranslucencyCondition string         `json:"translucency_condition"`
	UniformnessScore      int            `json:"uniformness_score"`
	UniformnessCondition  string         `json:"uniformness_condition"`
	EyeAreaScore          int            `json:"eye_area_score"`
	EyeAreaCondition      string         `json:"eye_area_condition"`
	OverallScore          int            `json:"overall_score"`
	PriorityAreas         pq.StringArray `gorm:"type:text[]" json:"priority_areas"`
	Recommendations       pq.StringArray `gorm:"type:text[]" json:"recommendations"`
	ZonesData             datatypes.JSON `gorm:"type:jsonb" json:"zones_data"`
}

func (FullFaceAnalysis) TableName() string { return "full_face_analyses" }
