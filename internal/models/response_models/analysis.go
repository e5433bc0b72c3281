package response_models

import "inos/internal/models/state_models"

type DarkCircleData struct {
	DarkCircleType  state_models.DarkCircleType      `json:"darkCircleType"`
	Intensity       state_models.DarkCircleIntensity `json:"intensity"`
	Score           int                              `json:"score"`
	LeftEyeScore    int                              `json:"leftEyeScore"`
	RightEyeScore   int                              `json:"rightEyeScore"`
	Recommendations []string                         `json:"recommendations"`
	Analysis        string                           `json:"analysis"`
	Simulated       bool                             `json:"simulated,omitempty"`
}

// DarkCircleAnalysisResult always comes back with Success set; the mock fills in when the model cannot.
type DarkCircleAnalysisResult struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    *DarkCircleData `json:"data,omitempty"`
}

type FullFaceAnalysisResult struct {
	Success bool                           `json:"success"`
	Error   string                         `json:"error,omitempty"`
	Data    *state_models.FullFaceAnalysis `json:"data,omitempty"`
}
