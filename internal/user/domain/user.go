package domain

import "time"

type ID string

type User struct {
	ID           ID        `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID       ID
	Username string
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
