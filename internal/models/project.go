package models

import "time"

// Project is one serialized translation work owned by a chat group.
// All member references are weak: deleting a member nulls them out.
// Default assignees are copied into new episodes at creation time,
// never linked live.
type Project struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Alias     string `gorm:"size:200" json:"alias"` // comma-separated alternative names
	Tags      string `gorm:"size:500" json:"tags"`
	GroupID   string `gorm:"size:20;not null;index" json:"group_id"`
	GroupName string `gorm:"size:100" json:"group_name"` // cached display name, refreshed by member sync

	LeaderID *uint   `json:"leader_id"`
	Leader   *Member `gorm:"foreignKey:LeaderID;constraint:OnDelete:SET NULL" json:"leader,omitempty"`

	DefaultTranslatorID  *uint   `json:"default_translator_id"`
	DefaultTranslator    *Member `gorm:"foreignKey:DefaultTranslatorID;constraint:OnDelete:SET NULL" json:"default_translator,omitempty"`
	DefaultProofreaderID *uint   `json:"default_proofreader_id"`
	DefaultProofreader   *Member `gorm:"foreignKey:DefaultProofreaderID;constraint:OnDelete:SET NULL" json:"default_proofreader,omitempty"`
	DefaultTypesetterID  *uint   `json:"default_typesetter_id"`
	DefaultTypesetter    *Member `gorm:"foreignKey:DefaultTypesetterID;constraint:OnDelete:SET NULL" json:"default_typesetter,omitempty"`
	DefaultSupervisorID  *uint   `json:"default_supervisor_id"`
	DefaultSupervisor    *Member `gorm:"foreignKey:DefaultSupervisorID;constraint:OnDelete:SET NULL" json:"default_supervisor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// DefaultAssigneeID returns the project default for a pipeline stage.
func (p *Project) DefaultAssigneeID(stage int) *uint {
	switch stage {
	case StatusTranslating:
		return p.DefaultTranslatorID
	case StatusProofing:
		return p.DefaultProofreaderID
	case StatusTypesetting:
		return p.DefaultTypesetterID
	case StatusSupervising:
		return p.DefaultSupervisorID
	}
	return nil
}
