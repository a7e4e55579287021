// Package models defines the server-side records persisted by the stores and
// returned by the services.
package models

import "time"

// User is an account. PasswordHash never leaves the identity store layer:
// it is excluded from JSON and services return PublicUser to callers.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the client-visible projection of User.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
