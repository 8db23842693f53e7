package domain

// User es el registro persistido de una cuenta. El hash nunca se serializa hacia el cliente.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Identity es el par (id, username) que una sesión asocia al cliente.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}
