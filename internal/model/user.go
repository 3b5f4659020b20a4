package model

import (
	"net/url"
	"time"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviewsCount"`
}

// Public returns a copy without the credential hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// DefaultAvatar is the generated avatar for a fresh account.
func DefaultAvatar(username string) string {
	return avatarBaseURL + url.QueryEscape(username)
}

// FindUser returns the user with the given id, or nil.
func FindUser(users []User, id int64) *User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

// FindUserByName is case-sensitive, like the uniqueness rule.
func FindUserByName(users []User, username string) *User {
	for i := range users {
		if users[i].Username == username {
			return &users[i]
		}
	}
	return nil
}
