package state_models

import "time"

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the persisted auth session. RefreshToken is empty for sessions minted locally.
type Session struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	User         SessionUser `json:"user"`
}

// ValidAt reports whether the access token can still be presented at now.
func (s Session) ValidAt(now time.Time) bool {
	return s.AccessToken != "" && s.User.ID != "" && now.Before(s.ExpiresAt)
}
