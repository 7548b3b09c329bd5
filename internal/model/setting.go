package model

import "time"

// Well-known setting keys.
const (
	SettingExamPortalEnabled = "exam_portal_enabled"
)

// AppSetting is a key/value application toggle.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is the payload for bulk setting updates.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required,min=1"`
}
