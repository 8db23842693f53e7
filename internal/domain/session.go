package domain

import "time"

type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Username: s.Username}
}

// Expired indica si la sesión ya no es válida en el instante now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
