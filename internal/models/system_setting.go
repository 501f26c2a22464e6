package models

import "time"

// SystemSetting stores operator-managed key/value settings such as gateway credentials.
// Secret values are masked whenever settings are echoed back over HTTP.
type SystemSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Secret    bool      `gorm:"not null;default:false" json:"secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SystemSetting) TableName() string { return "system_settings" }
