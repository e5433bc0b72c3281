package request_models

type ScanRequest struct {
	PhotoURI    string `json:"photoUri"`
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

type FlagsRequest struct {
	OnboardingStep    *int  `json:"onboardingStep" binding:"omitempty,min=0"`
	HasSeenOnboarding *bool `json:"hasSeenOnboarding"`
	HasSeenIntro      *bool `json:"hasSeenIntro"`
}

type OnboardingRequest struct {
	Name           string            `json:"name"`
	Email          string            `json:"email" binding:"omitempty,email"`
	SkinType       string            `json:"skinType" binding:"omitempty,oneof=dry oily combination normal sensitive"`
	DarkCircleType string            `json:"darkCircleType"`
	Goal           string            `json:"goal"`
	Lifestyle      []string          `json:"lifestyle"`
	QuizAnswers    map[string]string `json:"quizAnswers"`
}
