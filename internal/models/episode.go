package models

import "time"

// Episode status values. The pipeline order is fixed; Supervising is
// optional per episode (skipped when no supervisor or supervise deadline
// exists at the time typesetting completes).
const (
	StatusNotStarted  = 0
	StatusTranslating = 1
	StatusProofing    = 2
	StatusTypesetting = 3
	StatusSupervising = 4
	StatusDone        = 5
)

// WorkStages lists the stages that carry an assignee and a deadline,
// in pipeline order.
var WorkStages = []int{StatusTranslating, StatusProofing, StatusTypesetting, StatusSupervising}

var statusNames = map[int]string{
	StatusNotStarted:  "未开始",
	StatusTranslating: "翻译",
	StatusProofing:    "校对",
	StatusTypesetting: "嵌字",
	StatusSupervising: "监修",
	StatusDone:        "完结",
}

// StatusName returns the Chinese stage name used in chat messages.
func StatusName(status int) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "未知"
}

// ValidStatus reports whether v is a defined status value.
func ValidStatus(v int) bool {
	_, ok := statusNames[v]
	return ok
}

// Episode is one installment of a project. It cannot outlive its project;
// staff slots are weak references nulled when a member is deleted.
type Episode struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	ProjectID uint     `gorm:"not null;uniqueIndex:idx_project_title" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"-"`
	Title     string   `gorm:"size:100;not null;uniqueIndex:idx_project_title" json:"title"`
	Status    int      `gorm:"default:0;index" json:"status"`

	TranslatorID  *uint   `json:"translator_id"`
	Translator    *Member `gorm:"foreignKey:TranslatorID;constraint:OnDelete:SET NULL" json:"translator,omitempty"`
	ProofreaderID *uint   `json:"proofreader_id"`
	Proofreader   *Member `gorm:"foreignKey:ProofreaderID;constraint:OnDelete:SET NULL" json:"proofreader,omitempty"`
	TypesetterID  *uint   `json:"typesetter_id"`
	Typesetter    *Member `gorm:"foreignKey:TypesetterID;constraint:OnDelete:SET NULL" json:"typesetter,omitempty"`
	SupervisorID  *uint   `json:"supervisor_id"`
	Supervisor    *Member `gorm:"foreignKey:SupervisorID;constraint:OnDelete:SET NULL" json:"supervisor,omitempty"`

	DdlTrans     *time.Time `json:"ddl_trans"`
	DdlProof     *time.Time `json:"ddl_proof"`
	DdlType      *time.Time `json:"ddl_type"`
	DdlSupervise *time.Time `json:"ddl_supervise"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Episode) TableName() string { return "episodes" }

// AssigneeID returns the staff slot for a stage.
func (e *Episode) AssigneeID(stage int) *uint {
	switch stage {
	case StatusTranslating:
		return e.TranslatorID
	case StatusProofing:
		return e.ProofreaderID
	case StatusTypesetting:
		return e.TypesetterID
	case StatusSupervising:
		return e.SupervisorID
	}
	return nil
}

// Assignee returns the preloaded member for a stage slot, if any.
func (e *Episode) Assignee(stage int) *Member {
	switch stage {
	case StatusTranslating:
		return e.Translator
	case StatusProofing:
		return e.Proofreader
	case StatusTypesetting:
		return e.Typesetter
	case StatusSupervising:
		return e.Supervisor
	}
	return nil
}

// SetAssigneeID writes the staff slot for a stage.
func (e *Episode) SetAssigneeID(stage int, id *uint) {
	switch stage {
	case StatusTranslating:
		e.TranslatorID = id
	case StatusProofing:
		e.ProofreaderID = id
	case StatusTypesetting:
		e.TypesetterID = id
	case StatusSupervising:
		e.SupervisorID = id
	}
}

// Deadline returns the deadline slot for a stage.
func (e *Episode) Deadline(stage int) *time.Time {
	switch stage {
	case StatusTranslating:
		return e.DdlTrans
	case StatusProofing:
		return e.DdlProof
	case StatusTypesetting:
		return e.DdlType
	case StatusSupervising:
		return e.DdlSupervise
	}
	return nil
}

// SetDeadline writes the deadline slot for a stage.
func (e *Episode) SetDeadline(stage int, t *time.Time) {
	switch stage {
	case StatusTranslating:
		e.DdlTrans = t
	case StatusProofing:
		e.DdlProof = t
	case StatusTypesetting:
		e.DdlType = t
	case StatusSupervising:
		e.DdlSupervise = t
	}
}

// Active reports whether the episode is somewhere inside the pipeline.
func (e *Episode) Active() bool {
	return e.Status >= StatusTranslating && e.Status <= StatusSupervising
}

// HasSupervision reports whether the optional supervising stage applies:
// it does when a supervisor is assigned or a supervise deadline is set.
func (e *Episode) HasSupervision() bool {
	return e.SupervisorID != nil || e.DdlSupervise != nil
}
