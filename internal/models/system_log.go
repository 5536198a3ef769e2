package models

import "time"

// SystemLog is an operation log row (workflow transitions, broadcasts,
// deliveries, auth events).
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	GroupID   string    `gorm:"size:20;index" json:"group_id"` // chat group involved, if any
	Extra     string    `gorm:"type:text" json:"extra"`        // JSON extra data
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
