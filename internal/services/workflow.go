package services

import (
	"errors"
	"strings"
	"time"

	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkflowService owns the episode state machine: guarded stage
// advancement and the administrative edit path. Episode state is never
// cached across calls; every operation re-loads, mutates and persists
// inside one transaction holding a row lock on the episode, so two
// concurrent writers on the same episode serialize.
type WorkflowService struct {
	db        *gorm.DB
	memberSvc *MemberService
}

func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db, memberSvc: NewMemberService(db)}
}

// Actor is the identity attempting a guarded transition.
type Actor struct {
	PlatformID   string
	IsGroupAdmin bool // role reported by the chat platform event
}

var episodePreloads = []string{"Translator", "Proofreader", "Typesetter", "Supervisor"}

func lockEpisode(tx *gorm.DB) *gorm.DB {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	for _, p := range episodePreloads {
		q = q.Preload(p)
	}
	return q
}

// FindProjectByRef resolves a project by exact name or by one of its
// comma-separated aliases.
func FindProjectByRef(tx *gorm.DB, ref string) (*models.Project, error) {
	var project models.Project
	err := tx.Preload("Leader").Where("name = ?", ref).First(&project).Error
	if err == nil {
		return &project, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var candidates []models.Project
	if err := tx.Preload("Leader").Where("alias LIKE ?", "%"+ref+"%").Find(&candidates).Error; err != nil {
		return nil, err
	}
	for i := range candidates {
		for _, alias := range strings.Split(candidates[i].Alias, ",") {
			if strings.TrimSpace(alias) == ref {
				return &candidates[i], nil
			}
		}
	}
	return nil, notFoundf("项目 %s", ref)
}

// AttemptAdvance moves an episode to its next stage on behalf of actor.
// Permission precedence: current-stage assignee, then project leader,
// then group admin; first match wins. On success the next stage's
// deadline is stamped with the default when absent, and the returned
// ChangeSet mentions the next responsible party.
func (s *WorkflowService) AttemptAdvance(projectRef, episodeTitle string, actor Actor) (*ChangeSet, error) {
	var cs *ChangeSet

	err := s.db.Transaction(func(tx *gorm.DB) error {
		project, err := FindProjectByRef(tx, projectRef)
		if err != nil {
			return err
		}

		var ep models.Episode
		if err := lockEpisode(tx).
			Where("project_id = ? AND title = ?", project.ID, episodeTitle).
			First(&ep).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("%s %s", project.Name, episodeTitle)
			}
			return err
		}

		switch {
		case ep.Status == models.StatusDone:
			return ErrAlreadyTerminal
		case ep.Status == models.StatusNotStarted:
			return ErrStageUnassigned
		}

		if err := s.checkAdvancePermission(tx, project, &ep, actor); err != nil {
			return err
		}

		next := ep.Status + 1
		if next == models.StatusSupervising && !ep.HasSupervision() {
			next = models.StatusDone
		}

		target := s.resolveTransitionTarget(tx, project, &ep, next)

		updates := map[string]interface{}{"status": next}
		if next != models.StatusDone && ep.Deadline(next) == nil {
			ddl := utils.DefaultDeadline(time.Now())
			ep.SetDeadline(next, &ddl)
			updates[deadlineColumn(next)] = ddl
		}

		cs = &ChangeSet{
			ProjectName:  project.Name,
			EpisodeTitle: ep.Title,
			GroupID:      project.GroupID,
		}
		cs.addLine("状态: %s → %s", models.StatusName(ep.Status), models.StatusName(next))
		if target.Member != nil {
			cs.mention(target.Member)
		} else if target.Generic {
			cs.NotifyAdmins = true
		}

		if err := tx.Model(&models.Episode{}).Where("id = ?", ep.ID).Updates(updates).Error; err != nil {
			return err
		}

		LogInfo("workflow", "advance", cs.Lines[0]+" "+project.Name+" "+ep.Title, project.GroupID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *WorkflowService) checkAdvancePermission(tx *gorm.DB, project *models.Project, ep *models.Episode, actor Actor) error {
	if a := ep.Assignee(ep.Status); a != nil && a.PlatformID == actor.PlatformID {
		return nil
	}
	if project.Leader != nil && project.Leader.PlatformID == actor.PlatformID {
		return nil
	}
	if actor.IsGroupAdmin {
		return nil
	}
	// The boundary may not know the role; fall back to the synced flag.
	var m models.Member
	if err := tx.Where("platform_id = ? AND group_id = ?", actor.PlatformID, project.GroupID).
		First(&m).Error; err == nil && m.IsAdmin {
		return nil
	}
	return &PermissionDeniedError{
		Stage:    models.StatusName(ep.Status),
		Assignee: ep.Assignee(ep.Status).Display(),
	}
}

// resolveTransitionTarget picks who to mention after a status change:
// the incoming stage's assignee, or on completion the project leader,
// falling back to the group's first admin, falling back to a generic
// "notify administrators" marker.
func (s *WorkflowService) resolveTransitionTarget(tx *gorm.DB, project *models.Project, ep *models.Episode, next int) TransitionTarget {
	if next != models.StatusDone {
		return TransitionTarget{Member: ep.Assignee(next)}
	}
	if project.Leader != nil {
		return TransitionTarget{Member: project.Leader}
	}
	var admin models.Member
	if err := tx.Where("group_id = ? AND is_admin = ?", project.GroupID, true).
		Order("id").First(&admin).Error; err == nil {
		return TransitionTarget{Member: &admin}
	}
	return TransitionTarget{Generic: true}
}

func deadlineColumn(stage int) string {
	switch stage {
	case models.StatusTranslating:
		return "ddl_trans"
	case models.StatusProofing:
		return "ddl_proof"
	case models.StatusTypesetting:
		return "ddl_type"
	case models.StatusSupervising:
		return "ddl_supervise"
	}
	return ""
}

// EpisodeEditForm is the administrative overwrite of every tracked
// episode field. Empty platform IDs mean "unassigned". This is the only
// path that may move status backward or skip stages.
type EpisodeEditForm struct {
	Title         string     `json:"title" binding:"required"`
	Status        int        `json:"status"`
	TranslatorID  string     `json:"translator_id"`
	ProofreaderID string     `json:"proofreader_id"`
	TypesetterID  string     `json:"typesetter_id"`
	SupervisorID  string     `json:"supervisor_id"`
	DdlTrans      *time.Time `json:"ddl_trans"`
	DdlProof      *time.Time `json:"ddl_proof"`
	DdlType       *time.Time `json:"ddl_type"`
	DdlSupervise  *time.Time `json:"ddl_supervise"`
}

func (f *EpisodeEditForm) stagePlatformID(stage int) string {
	switch stage {
	case models.StatusTranslating:
		return f.TranslatorID
	case models.StatusProofing:
		return f.ProofreaderID
	case models.StatusTypesetting:
		return f.TypesetterID
	case models.StatusSupervising:
		return f.SupervisorID
	}
	return ""
}

func (f *EpisodeEditForm) stageDeadline(stage int) *time.Time {
	switch stage {
	case models.StatusTranslating:
		return f.DdlTrans
	case models.StatusProofing:
		return f.DdlProof
	case models.StatusTypesetting:
		return f.DdlType
	case models.StatusSupervising:
		return f.DdlSupervise
	}
	return nil
}

// ApplyEdit overwrites every tracked field of an episode and reports
// what changed. It performs no permission check itself; the boundary
// is responsible. Diffing equal states yields an empty ChangeSet and
// the caller must not notify.
func (s *WorkflowService) ApplyEdit(episodeID uint, form *EpisodeEditForm) (*ChangeSet, error) {
	if !models.ValidStatus(form.Status) {
		return nil, validationf("无效的状态 %d", form.Status)
	}

	var cs *ChangeSet

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ep models.Episode
		if err := lockEpisode(tx).Preload("Project").Preload("Project.Leader").
			First(&ep, episodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("episode %d", episodeID)
			}
			return err
		}
		project := ep.Project

		oldState := EpisodeState{Title: ep.Title, Status: ep.Status, Stages: map[int]StageState{}}
		for _, stage := range models.WorkStages {
			oldState.Stages[stage] = StageState{Assignee: ep.Assignee(stage), Deadline: ep.Deadline(stage)}
		}

		newState := EpisodeState{Title: form.Title, Status: form.Status, Stages: map[int]StageState{}}
		updates := map[string]interface{}{
			"title":  form.Title,
			"status": form.Status,
		}
		for _, stage := range models.WorkStages {
			var assignee *models.Member
			if pid := form.stagePlatformID(stage); pid != "" {
				m, err := s.memberSvc.getOrCreateTx(tx, pid, project.GroupID)
				if err != nil {
					return err
				}
				assignee = m
			}
			newState.Stages[stage] = StageState{Assignee: assignee, Deadline: form.stageDeadline(stage)}

			updates[assigneeColumn(stage)] = memberIDOrNil(assignee)
			updates[deadlineColumn(stage)] = form.stageDeadline(stage)
		}

		var transition *TransitionTarget
		if oldState.Status != newState.Status {
			t := s.resolveEditTransitionTarget(tx, project, newState)
			transition = &t
		}

		cs = &ChangeSet{
			ProjectName:  project.Name,
			EpisodeTitle: form.Title,
			GroupID:      project.GroupID,
		}
		diffEpisodeStates(cs, oldState, newState, transition)

		if cs.Empty() {
			return nil // nothing changed, nothing written
		}

		if err := tx.Model(&models.Episode{}).Where("id = ?", ep.ID).Updates(updates).Error; err != nil {
			return err
		}

		LogInfo("workflow", "edit", project.Name+" "+form.Title+": "+strings.Join(cs.Lines, "; "), project.GroupID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *WorkflowService) resolveEditTransitionTarget(tx *gorm.DB, project *models.Project, state EpisodeState) TransitionTarget {
	if state.Status == models.StatusDone {
		if project.Leader != nil {
			return TransitionTarget{Member: project.Leader}
		}
		var admin models.Member
		if err := tx.Where("group_id = ? AND is_admin = ?", project.GroupID, true).
			Order("id").First(&admin).Error; err == nil {
			return TransitionTarget{Member: &admin}
		}
		return TransitionTarget{Generic: true}
	}
	if st, ok := state.Stages[state.Status]; ok {
		return TransitionTarget{Member: st.Assignee}
	}
	return TransitionTarget{}
}

func assigneeColumn(stage int) string {
	switch stage {
	case models.StatusTranslating:
		return "translator_id"
	case models.StatusProofing:
		return "proofreader_id"
	case models.StatusTypesetting:
		return "typesetter_id"
	case models.StatusSupervising:
		return "supervisor_id"
	}
	return ""
}

func memberIDOrNil(m *models.Member) interface{} {
	if m == nil {
		return nil
	}
	return m.ID
}
