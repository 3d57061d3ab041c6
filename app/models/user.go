// Package models holds the records the mock store serves. All records are
// plain values; Clone methods give callers copies that share no pointers
// with the store.
package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch Role(r) {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Profile is optional; several seeded users have none.
type Profile struct {
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Bio         string  `json:"bio"`
}

type User struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Profile      *Profile   `json:"profile"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	PasswordHash string     `json:"-"`
}

// DisplayName falls back to Name when the profile or its display name is
// missing.
func (u User) DisplayName() string {
	if u.Profile != nil && u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	return u.Name
}

func (u User) Clone() User {
	if u.Profile != nil {
		p := *u.Profile
		if p.AvatarURL != nil {
			a := *p.AvatarURL
			p.AvatarURL = &a
		}
		u.Profile = &p
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		u.LastLoginAt = &t
	}
	return u
}

// UserView is the API shape of a user.
type UserView struct {
	User
	DisplayName string `json:"displayName"`
}

func (u User) View() UserView {
	return UserView{User: u, DisplayName: u.DisplayName()}
}
