package models

import "time"

type NotificationPrefs struct {
	Email  bool   `json:"email"`
	Push   bool   `json:"push"`
	SMS    bool   `json:"sms"`
	Digest string `json:"digest" validate:"required,in=none,daily,weekly"`
}

type Privacy struct {
	ProfileVisibility string `json:"profileVisibility" validate:"required,in=public,private,friends"`
	ShowEmail         bool   `json:"showEmail"`
}

// Settings are stored per user id. Every section is required.
type Settings struct {
	UserID        string            `json:"userId"`
	Theme         string            `json:"theme" validate:"required,in=light,dark,system"`
	Language      string            `json:"language" validate:"required,regex=^[a-z]{2}(-[A-Z]{2})?$"`
	Timezone      string            `json:"timezone" validate:"required,max=64"`
	Notifications NotificationPrefs `json:"notifications" validate:"dive"`
	Privacy       Privacy           `json:"privacy" validate:"dive"`
	UpdatedAt     *time.Time        `json:"updatedAt"`
}

// DefaultSettings are returned for users with nothing stored.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:   userID,
		Theme:    "system",
		Language: "en",
		Timezone: "UTC",
		Notifications: NotificationPrefs{
			Email:  true,
			Push:   true,
			SMS:    false,
			Digest: "weekly",
		},
		Privacy: Privacy{
			ProfileVisibility: "public",
			ShowEmail:         false,
		},
	}
}

func (s Settings) Clone() Settings {
	s.UpdatedAt = cloneTime(s.UpdatedAt)
	return s
}
