package models

import (
	"fmt"
	"time"
)

// Member is a chat-platform account scoped to one group. The same person
// in two groups is two distinct rows, because identity and permissions
// are group-scoped.
type Member struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlatformID string    `gorm:"size:20;not null;uniqueIndex:idx_platform_group" json:"platform_id"`
	GroupID    string    `gorm:"size:20;not null;uniqueIndex:idx_platform_group" json:"group_id"`
	Name       string    `gorm:"size:100" json:"name"`
	Tags       string    `gorm:"size:500" json:"tags"`
	IsAdmin    bool      `gorm:"default:false" json:"is_admin"` // group owner/admin, refreshed by member sync
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Member) TableName() string { return "members" }

// Display renders the member as "Name(ID)" the way chat messages show staff.
func (m *Member) Display() string {
	if m == nil {
		return "未分配"
	}
	name := m.Name
	if name == "" {
		name = "未知"
	}
	return fmt.Sprintf("%s(%s)", name, m.PlatformID)
}
