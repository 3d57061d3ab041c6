package controllers

import (
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

type settingsMeta struct {
	IsDefault bool `json:"isDefault"`
}

type SettingsController struct {
	settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

func (sc *SettingsController) Show(c *ctx.Context) {
	userID, ok := required(c, "userId")
	if !ok {
		return
	}

	s, isDefault, err := sc.settings.Get(c.Context(), userID)
	if err != nil {
		fail(c, err, "Settings not found")
		return
	}
	c.SuccessWithMeta(s, settingsMeta{IsDefault: isDefault})
}

// Replace stores a complete settings document.
func (sc *SettingsController) Replace(c *ctx.Context) {
	var in services.SettingsInput
	if !c.BindJSON(&in) {
		return
	}

	s, err := sc.settings.Replace(c.Context(), in)
	if err != nil {
		fail(c, err, "Settings not found")
		return
	}
	c.Success(s)
}

// Update deep-merges the body into the current settings. Unknown keys at
// any level are rejected by the decoder.
func (sc *SettingsController) Update(c *ctx.Context) {
	var in services.SettingsPatch
	if !c.BindJSON(&in) {
		return
	}

	s, err := sc.settings.Patch(c.Context(), in)
	if err != nil {
		fail(c, err, "Settings not found")
		return
	}
	c.Success(s)
}

// Reset deletes stored settings and returns the defaults.
func (sc *SettingsController) Reset(c *ctx.Context) {
	userID, ok := required(c, "userId")
	if !ok {
		return
	}

	s, err := sc.settings.Reset(c.Context(), userID)
	if err != nil {
		fail(c, err, "Settings not found")
		return
	}
	c.Success(s)
}
