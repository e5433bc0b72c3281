package state_models

import "strings"

type DarkCircleType string

const (
	DarkCircleVascular   DarkCircleType = "vascular"
	DarkCirclePigmented  DarkCircleType = "pigmented"
	DarkCircleStructural DarkCircleType = "structural"
	DarkCircleMixed      DarkCircleType = "mixed"
)

var DarkCircleTypes = []DarkCircleType{DarkCircleVascular, DarkCirclePigmented, DarkCircleStructural, DarkCircleMixed}

type DarkCircleIntensity string

const (
	IntensityMild     DarkCircleIntensity = "mild"
	IntensityModerate DarkCircleIntensity = "moderate"
	IntensitySevere   DarkCircleIntensity = "severe"
)

var DarkCircleIntensities = []DarkCircleIntensity{IntensityMild, IntensityModerate, IntensitySevere}

type MetricCondition string

const (
	ConditionExcellent MetricCondition = "excellent"
	ConditionGood      MetricCondition = "good"
	ConditionRatherBad MetricCondition = "rather_bad"
	ConditionBad       MetricCondition = "bad"
)

// ConditionFor maps a 0-100 score (higher is better) to its qualitative level.
func ConditionFor(score int) MetricCondition {
	switch {
	case score >= 80:
		return ConditionExcellent
	case score >= 60:
		return ConditionGood
	case score >= 40:
		return ConditionRatherBad
	default:
		return ConditionBad
	}
}

type SkinTone string

const (
	SkinToneVeryLight    SkinTone = "very_light"
	SkinToneLight        SkinTone = "light"
	SkinToneIntermediate SkinTone = "intermediate"
	SkinToneTan          SkinTone = "tan"
	SkinToneBrown        SkinTone = "brown"
	SkinToneDark         SkinTone = "dark"
)

var SkinTones = []SkinTone{SkinToneVeryLight, SkinToneLight, SkinToneIntermediate, SkinToneTan, SkinToneBrown, SkinToneDark}

// SkinAnalysis is the result of a basic dark-circle scan. Score is 0-100, lower is better.
type SkinAnalysis struct {
	ID              string              `json:"id"`
	Date            string              `json:"date"`
	PhotoURI        string              `json:"photoUri"`
	DarkCircleType  DarkCircleType      `json:"darkCircleType"`
	Intensity       DarkCircleIntensity `json:"intensity"`
	Score           int                 `json:"score"`
	LeftEyeScore    int                 `json:"leftEyeScore"`
	RightEyeScore   int                 `json:"rightEyeScore"`
	Recommendations []string            `json:"recommendations"`
	Analysis        string              `json:"analysis,omitempty"`
	Simulated       bool                `json:"simulated,omitempty"`
}

type ZoneScore struct {
	Score     int             `json:"score"`
	Condition MetricCondition `json:"condition"`
}

type FaceZoneScores struct {
	Forehead     *ZoneScore `json:"forehead,omitempty"`
	LeftCheek    *ZoneScore `json:"leftCheek,omitempty"`
	RightCheek   *ZoneScore `json:"rightCheek,omitempty"`
	Nose         *ZoneScore `json:"nose,omitempty"`
	Chin         *ZoneScore `json:"chin,omitempty"`
	LeftEyeArea  *ZoneScore `json:"leftEyeArea,omitempty"`
	RightEyeArea *ZoneScore `json:"rightEyeArea,omitempty"`
}

type SkinMetric struct {
	Name        string          `json:"name"`
	Value       int             `json:"value"`
	Unit        string          `json:"unit,omitempty"`
	Condition   MetricCondition `json:"condition"`
	Zones       FaceZoneScores  `json:"zones"`
	Description string          `json:"description"`
}

// FullFaceAnalysis holds the nine-metric premium scan. Metric values are 0-100, higher is better.
type FullFaceAnalysis struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	PhotoURI string `json:"photoUri"`

	PerceivedAge int      `json:"perceivedAge"`
	EyeAge       int      `json:"eyeAge"`
	SkinTone     SkinTone `json:"skinTone"`
	ITAScore     int      `json:"itaScore"`

	AcneScore         SkinMetric `json:"acneScore"`
	HydrationScore    SkinMetric `json:"hydrationScore"`
	LinesScore        SkinMetric `json:"linesScore"`
	PigmentationScore SkinMetric `json:"pigmentationScore"`
	PoresScore        SkinMetric `json:"poresScore"`
	RednessScore      SkinMetric `json:"rednessScore"`
	TranslucencyScore SkinMetric `json:"translucencyScore"`
	UniformnessScore  SkinMetric `json:"uniformnessScore"`
	EyeAreaCondition  SkinMetric `json:"eyeAreaCondition"`

	OverallScore    int      `json:"overallScore"`
	Recommendations []string `json:"recommendations"`
	PriorityAreas   []string `json:"priorityAreas"`
	Simulated       bool     `json:"simulated,omitempty"`
}

// Metrics lists the nine metrics in display order.
func (f *FullFaceAnalysis) Metrics() []*SkinMetric {
	return []*SkinMetric{
		&f.AcneScore, &f.HydrationScore, &f.LinesScore, &f.PigmentationScore, &f.PoresScore,
		&f.RednessScore, &f.TranslucencyScore, &f.UniformnessScore, &f.EyeAreaCondition,
	}
}

// IsRemoteURI reports whether a photo reference already points at remote storage.
func IsRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "https://")
}
