package services

import (
	"errors"
	"time"

	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/utils"
	"gorm.io/gorm"
)

// EpisodeService creates and removes episodes. Advancing and editing
// live on WorkflowService; this service only handles the lifecycle
// around them.
type EpisodeService struct {
	db        *gorm.DB
	memberSvc *MemberService
	notifier  *Notifier
}

func NewEpisodeService(db *gorm.DB, memberSvc *MemberService, notifier *Notifier) *EpisodeService {
	return &EpisodeService{db: db, memberSvc: memberSvc, notifier: notifier}
}

// EpisodeForm carries platform IDs for stage slots; empty slots fall
// back to the project's default staff.
type EpisodeForm struct {
	ProjectID     uint       `json:"project_id" binding:"required"`
	Title         string     `json:"title" binding:"required"`
	TranslatorID  string     `json:"translator_id"`
	ProofreaderID string     `json:"proofreader_id"`
	TypesetterID  string     `json:"typesetter_id"`
	SupervisorID  string     `json:"supervisor_id"`
	DdlTrans      *time.Time `json:"ddl_trans"`
	DdlProof      *time.Time `json:"ddl_proof"`
	DdlType       *time.Time `json:"ddl_type"`
	DdlSupervise  *time.Time `json:"ddl_supervise"`
}

// Add creates an episode in the translating stage. Unfilled stage slots
// inherit the project defaults, and a missing translation deadline is
// stamped two weeks out so every new episode is broadcast-visible.
func (s *EpisodeService) Add(form *EpisodeForm) (*models.Episode, error) {
	var project models.Project
	if err := s.db.Preload("Leader").First(&project, form.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("project %d", form.ProjectID)
		}
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Episode{}).
		Where("project_id = ? AND title = ?", project.ID, form.Title).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationf("话数已存在：%s %s", project.Name, form.Title)
	}

	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        form.Title,
		Status:       models.StatusTranslating,
		DdlTrans:     form.DdlTrans,
		DdlProof:     form.DdlProof,
		DdlType:      form.DdlType,
		DdlSupervise: form.DdlSupervise,
	}
	if ep.DdlTrans == nil {
		ddl := utils.DefaultDeadline(time.Now())
		ep.DdlTrans = &ddl
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		slots := []struct {
			stage int
			pid   string
		}{
			{models.StatusTranslating, form.TranslatorID},
			{models.StatusProofing, form.ProofreaderID},
			{models.StatusTypesetting, form.TypesetterID},
			{models.StatusSupervising, form.SupervisorID},
		}
		for _, sl := range slots {
			pid := sl.pid
			if pid == "" {
				// fall back to the project default for this stage
				if def := project.DefaultAssigneeID(sl.stage); def != nil {
					ep.SetAssigneeID(sl.stage, def)
					continue
				}
				continue
			}
			m, err := s.memberSvc.getOrCreateTx(tx, pid, project.GroupID)
			if err != nil {
				return err
			}
			ep.SetAssigneeID(sl.stage, &m.ID)
		}
		return tx.Create(ep).Error
	})
	if err != nil {
		return nil, err
	}

	full, err := s.Get(ep.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(project.GroupID, composeEpisodeAdded(&project, full))
	}
	LogInfo("episode", "add", "added "+project.Name+" "+full.Title, project.GroupID, nil)
	return full, nil
}

// composeEpisodeAdded announces a new episode, pinging the translator
// with the first deadline when one is assigned.
func composeEpisodeAdded(project *models.Project, ep *models.Episode) Payload {
	payload := Payload{text("📢 新任务：" + project.Name + " " + ep.Title + "\n")}
	if ep.Translator != nil {
		payload = append(payload, text("请 "), at(ep.Translator.PlatformID), text(" 接翻译"))
		if ep.DdlTrans != nil {
			payload = append(payload, text(" (死线: "+ep.DdlTrans.Format("01-02")+")"))
		}
	} else {
		payload = append(payload, text("⚠️ 翻译未分配"))
	}
	return payload
}

func (s *EpisodeService) preload() *gorm.DB {
	return s.db.Preload("Project").
		Preload("Translator").
		Preload("Proofreader").
		Preload("Typesetter").
		Preload("Supervisor")
}

func (s *EpisodeService) Get(id uint) (*models.Episode, error) {
	var ep models.Episode
	if err := s.preload().First(&ep, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("episode %d", id)
		}
		return nil, err
	}
	return &ep, nil
}

// GetByTitle resolves an episode inside a project by its title.
func (s *EpisodeService) GetByTitle(projectID uint, title string) (*models.Episode, error) {
	var ep models.Episode
	err := s.preload().Where("project_id = ? AND title = ?", projectID, title).First(&ep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("话数 %s", title)
		}
		return nil, err
	}
	return &ep, nil
}

// ListByProject returns a project's episodes in creation order.
func (s *EpisodeService) ListByProject(projectID uint) ([]models.Episode, error) {
	var eps []models.Episode
	if err := s.preload().Where("project_id = ?", projectID).Order("id").Find(&eps).Error; err != nil {
		return nil, err
	}
	return eps, nil
}

func (s *EpisodeService) Delete(id uint) error {
	var ep models.Episode
	if err := s.db.Preload("Project").First(&ep, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("episode %d", id)
		}
		return err
	}
	if err := s.db.Delete(&ep).Error; err != nil {
		return err
	}
	if ep.Project != nil {
		LogInfo("episode", "delete", "deleted "+ep.Project.Name+" "+ep.Title, ep.Project.GroupID, nil)
	}
	return nil
}
