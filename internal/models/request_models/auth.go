package request_models

// Auth payloads are validated by the auth service so users get its messages.

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RequestOtp struct {
	Email string `json:"email"`
}

type RequestVerifyOtp struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
