package models

import "time"

// GroupSetting controls the scheduled deadline broadcast for one chat
// group. When no row exists the group defaults to enabled at 10:00.
type GroupSetting struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	GroupID          string    `gorm:"size:20;not null;uniqueIndex" json:"group_id"`
	BroadcastEnabled bool      `gorm:"default:true" json:"broadcast_enabled"`
	BroadcastTime    string    `gorm:"size:5;default:'10:00'" json:"broadcast_time"` // HH:MM, local time
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (GroupSetting) TableName() string { return "group_settings" }
