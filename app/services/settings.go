package services

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/validate"
)

// SettingsInput is a full replacement. Every section must be present.
type SettingsInput struct {
	UserID        string                   `json:"userId" validate:"required,max=64"`
	Theme         string                   `json:"theme"`
	Language      string                   `json:"language"`
	Timezone      string                   `json:"timezone"`
	Notifications models.NotificationPrefs `json:"notifications"`
	Privacy       models.Privacy           `json:"privacy"`
}

type NotificationPrefsPatch struct {
	Email  *bool   `json:"email"`
	Push   *bool   `json:"push"`
	SMS    *bool   `json:"sms"`
	Digest *string `json:"digest"`
}

type PrivacyPatch struct {
	ProfileVisibility *string `json:"profileVisibility"`
	ShowEmail         *bool   `json:"showEmail"`
}

// SettingsPatch names only the keys to change. Nested sections merge key by
// key.
type SettingsPatch struct {
	UserID        string                  `json:"userId" validate:"required,max=64"`
	Theme         *string                 `json:"theme"`
	Language      *string                 `json:"language"`
	Timezone      *string                 `json:"timezone"`
	Notifications *NotificationPrefsPatch `json:"notifications"`
	Privacy       *PrivacyPatch           `json:"privacy"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.Theme == nil && p.Language == nil && p.Timezone == nil && p.Notifications == nil && p.Privacy == nil
}

// ValidationError carries field messages for a 400.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields)) }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

type SettingsService struct {
	store *store.Store
}

func NewSettingsService(s *store.Store) *SettingsService {
	return &SettingsService{store: s}
}

// Get returns the stored settings, or the defaults with isDefault set.
func (s *SettingsService) Get(ctx context.Context, userID string) (models.Settings, bool, error) {
	cur, err := s.store.Settings.FindUnique(ctx, userID)
	if err != nil {
		return models.Settings{}, false, err
	}
	if cur == nil {
		return models.DefaultSettings(userID), true, nil
	}
	return *cur, false, nil
}

// Replace stores in as the user's complete settings.
func (s *SettingsService) Replace(ctx context.Context, in SettingsInput) (models.Settings, error) {
	next := models.Settings{
		UserID:        in.UserID,
		Theme:         in.Theme,
		Language:      in.Language,
		Timezone:      in.Timezone,
		Notifications: in.Notifications,
		Privacy:       in.Privacy,
	}
	return s.save(ctx, next)
}

// Patch deep-merges p into the current settings, validates the result and
// stores whole sections, so the store's shallow update keeps every key.
func (s *SettingsService) Patch(ctx context.Context, p SettingsPatch) (models.Settings, error) {
	if p.Empty() {
		return models.Settings{}, &ValidationError{Fields: map[string]string{"settings": "At least one setting must be provided."}}
	}
	cur, _, err := s.Get(ctx, p.UserID)
	if err != nil {
		return models.Settings{}, err
	}
	return s.save(ctx, merge(cur, p))
}

// Reset drops stored settings and returns the defaults.
func (s *SettingsService) Reset(ctx context.Context, userID string) (models.Settings, error) {
	if _, err := s.store.Settings.Delete(ctx, userID); err != nil {
		return models.Settings{}, err
	}
	return models.DefaultSettings(userID), nil
}

func (s *SettingsService) save(ctx context.Context, next models.Settings) (models.Settings, error) {
	if errs := validate.Struct(next); validate.HasErrors(errs) {
		return models.Settings{}, &ValidationError{Fields: errs}
	}

	now := s.store.Now()
	next.UpdatedAt = &now
	saved, _, err := s.store.Settings.Upsert(ctx, next.UserID, next, map[string]any{
		"theme":         next.Theme,
		"language":      next.Language,
		"timezone":      next.Timezone,
		"notifications": next.Notifications,
		"privacy":       next.Privacy,
		"updatedAt":     now,
	})
	return saved, err
}

func merge(cur models.Settings, p SettingsPatch) models.Settings {
	set(&cur.Theme, p.Theme)
	set(&cur.Language, p.Language)
	set(&cur.Timezone, p.Timezone)
	if n := p.Notifications; n != nil {
		set(&cur.Notifications.Email, n.Email)
		set(&cur.Notifications.Push, n.Push)
		set(&cur.Notifications.SMS, n.SMS)
		set(&cur.Notifications.Digest, n.Digest)
	}
	if v := p.Privacy; v != nil {
		set(&cur.Privacy.ProfileVisibility, v.ProfileVisibility)
		set(&cur.Privacy.ShowEmail, v.ShowEmail)
	}
	return cur
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
