package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/padoru233/trans-progress/internal/models"
	"gorm.io/gorm"
)

// ProjectService manages serialized translation projects and their
// default staffing. Creating a project announces it to the group chat.
type ProjectService struct {
	db        *gorm.DB
	memberSvc *MemberService
	notifier  *Notifier
	client    *OneBotClient
}

func NewProjectService(db *gorm.DB, memberSvc *MemberService, notifier *Notifier) *ProjectService {
	return &ProjectService{db: db, memberSvc: memberSvc, notifier: notifier}
}

// WithClient attaches the platform client used to resolve group names
// and auto-fill the leader from the group owner.
func (s *ProjectService) WithClient(client *OneBotClient) *ProjectService {
	s.client = client
	return s
}

// ProjectForm carries platform IDs for staffing slots; an empty string
// leaves the slot unassigned.
type ProjectForm struct {
	Name                 string `json:"name" binding:"required"`
	Alias                string `json:"alias"`
	Tags                 string `json:"tags"`
	GroupID              string `json:"group_id" binding:"required"`
	LeaderID             string `json:"leader_id"`
	DefaultTranslatorID  string `json:"default_translator_id"`
	DefaultProofreaderID string `json:"default_proofreader_id"`
	DefaultTypesetterID  string `json:"default_typesetter_id"`
	DefaultSupervisorID  string `json:"default_supervisor_id"`
}

// Create registers a new project and announces it. When no leader is
// given, the group owner is looked up and recruited as leader.
func (s *ProjectService) Create(ctx context.Context, form *ProjectForm) (*models.Project, error) {
	var count int64
	if err := s.db.Model(&models.Project{}).Where("name = ?", form.Name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationf("项目名已存在：%s", form.Name)
	}

	groupName := "未同步"
	if s.client != nil {
		if info, err := s.client.GetGroupInfo(ctx, form.GroupID); err == nil {
			groupName = info.GroupName
		}
	}

	leaderID := form.LeaderID
	if leaderID == "" {
		leaderID = s.findGroupOwner(ctx, form.GroupID)
	}

	project := &models.Project{
		Name:      form.Name,
		Alias:     form.Alias,
		Tags:      form.Tags,
		GroupID:   form.GroupID,
		GroupName: groupName,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if project.LeaderID, err = s.resolveSlot(tx, leaderID, form.GroupID); err != nil {
			return err
		}
		if project.DefaultTranslatorID, err = s.resolveSlot(tx, form.DefaultTranslatorID, form.GroupID); err != nil {
			return err
		}
		if project.DefaultProofreaderID, err = s.resolveSlot(tx, form.DefaultProofreaderID, form.GroupID); err != nil {
			return err
		}
		if project.DefaultTypesetterID, err = s.resolveSlot(tx, form.DefaultTypesetterID, form.GroupID); err != nil {
			return err
		}
		if project.DefaultSupervisorID, err = s.resolveSlot(tx, form.DefaultSupervisorID, form.GroupID); err != nil {
			return err
		}
		return tx.Create(project).Error
	})
	if err != nil {
		return nil, err
	}

	full, err := s.Get(project.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(full.GroupID, composeProjectCreated(full))
	}
	LogInfo("project", "create", "created project "+full.Name, full.GroupID, nil)
	return full, nil
}

func (s *ProjectService) resolveSlot(tx *gorm.DB, platformID, groupID string) (*uint, error) {
	if platformID == "" {
		return nil, nil
	}
	m, err := s.memberSvc.getOrCreateTx(tx, platformID, groupID)
	if err != nil {
		return nil, err
	}
	return &m.ID, nil
}

func (s *ProjectService) findGroupOwner(ctx context.Context, groupID string) string {
	if s.client == nil {
		return ""
	}
	list, err := s.client.GetGroupMemberList(ctx, groupID)
	if err != nil {
		return ""
	}
	for _, gm := range list {
		if gm.Role == "owner" {
			return fmt.Sprintf("%d", gm.UserID)
		}
	}
	return ""
}

// composeProjectCreated builds the group announcement for a new
// project, @-mentioning each distinct staffed role once.
func composeProjectCreated(p *models.Project) Payload {
	head := "🎉 新坑开张：" + p.Name
	if p.Alias != "" {
		head += " (" + p.Alias + ")"
	}
	payload := Payload{text(head + "\n")}

	type slot struct {
		member *models.Member
		role   string
	}
	slots := []slot{
		{p.Leader, "负责人"},
		{p.DefaultTranslator, "默认翻译"},
		{p.DefaultProofreader, "默认校对"},
		{p.DefaultTypesetter, "默认嵌字"},
		{p.DefaultSupervisor, "默认监修"},
	}

	seen := map[string]bool{}
	for _, sl := range slots {
		if sl.member == nil || seen[sl.member.PlatformID] {
			continue
		}
		seen[sl.member.PlatformID] = true
		payload = append(payload, text(sl.role+": "), at(sl.member.PlatformID), text(" "))
	}

	payload = append(payload, text("\n大家加油！"))
	return payload
}

// SetDefaultRole sets one default staffing slot by platform ID. Used by
// the chat command boundary; the member is created lazily if unknown.
func (s *ProjectService) SetDefaultRole(projectRef string, stage int, platformID string) (*models.Project, *models.Member, error) {
	col := defaultAssigneeColumn(stage)
	if col == "" {
		return nil, nil, validationf("无效的职位")
	}

	var project *models.Project
	var member *models.Member
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := FindProjectByRef(tx, projectRef)
		if err != nil {
			return err
		}
		m, err := s.memberSvc.getOrCreateTx(tx, platformID, p.GroupID)
		if err != nil {
			return err
		}
		if err := tx.Model(p).Update(col, m.ID).Error; err != nil {
			return err
		}
		project, member = p, m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	LogInfo("project", "set_default", project.Name+" "+col+" -> "+member.Display(), project.GroupID, nil)
	return project, member, nil
}

func defaultAssigneeColumn(stage int) string {
	switch stage {
	case models.StatusTranslating:
		return "default_translator_id"
	case models.StatusProofing:
		return "default_proofreader_id"
	case models.StatusTypesetting:
		return "default_typesetter_id"
	case models.StatusSupervising:
		return "default_supervisor_id"
	}
	return ""
}

func (s *ProjectService) preload() *gorm.DB {
	return s.db.Preload("Leader").
		Preload("DefaultTranslator").
		Preload("DefaultProofreader").
		Preload("DefaultTypesetter").
		Preload("DefaultSupervisor")
}

// FindByRef resolves a project by name or alias with staffing preloaded.
func (s *ProjectService) FindByRef(ref string) (*models.Project, error) {
	p, err := FindProjectByRef(s.db, ref)
	if err != nil {
		return nil, err
	}
	return s.Get(p.ID)
}

func (s *ProjectService) Get(id uint) (*models.Project, error) {
	var p models.Project
	if err := s.preload().First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("project %d", id)
		}
		return nil, err
	}
	return &p, nil
}

// List returns all projects, optionally scoped to one group.
func (s *ProjectService) List(groupID string) ([]models.Project, error) {
	var projects []models.Project
	q := s.preload().Order("name")
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	if err := q.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Update rewrites the project's identity and default staffing. Staffing
// slots are replaced wholesale, matching the admin panel's edit form.
func (s *ProjectService) Update(id uint, form *ProjectForm) (*models.Project, error) {
	var p models.Project
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("project %d", id)
		}
		return nil, err
	}

	if form.Name != p.Name {
		var count int64
		if err := s.db.Model(&models.Project{}).
			Where("name = ? AND id <> ?", form.Name, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, validationf("项目名已存在：%s", form.Name)
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":  form.Name,
			"alias": form.Alias,
			"tags":  form.Tags,
		}
		slots := map[string]string{
			"leader_id":              form.LeaderID,
			"default_translator_id":  form.DefaultTranslatorID,
			"default_proofreader_id": form.DefaultProofreaderID,
			"default_typesetter_id":  form.DefaultTypesetterID,
			"default_supervisor_id":  form.DefaultSupervisorID,
		}
		for col, pid := range slots {
			ref, err := s.resolveSlot(tx, pid, p.GroupID)
			if err != nil {
				return err
			}
			updates[col] = ref
		}
		return tx.Model(&p).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete removes a project and all of its episodes.
func (s *ProjectService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("project %d", id)
			}
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Episode{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		LogInfo("project", "delete", "deleted project "+p.Name, p.GroupID, nil)
		return nil
	})
}
