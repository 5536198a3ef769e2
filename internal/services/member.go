package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/padoru233/trans-progress/internal/models"
	"gorm.io/gorm"
)

// MemberService manages chat-group members. Members are upserted by
// membership sync and created lazily when a platform ID is referenced
// by an edit. Deleting a member detaches every project/episode slot
// that pointed to it; history is never destroyed.
type MemberService struct {
	db     *gorm.DB
	client *OneBotClient
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

// WithClient attaches the platform client needed by SyncGroup.
func (s *MemberService) WithClient(client *OneBotClient) *MemberService {
	s.client = client
	return s
}

// GetOrNull resolves a member reference; an unknown ID is not an error,
// it is simply unassigned.
func (s *MemberService) GetOrNull(platformID, groupID string) (*models.Member, error) {
	if platformID == "" {
		return nil, nil
	}
	var m models.Member
	err := s.db.Where("platform_id = ? AND group_id = ?", platformID, groupID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate resolves a member, lazily creating a placeholder row when
// the ID has never been synced.
func (s *MemberService) GetOrCreate(platformID, groupID string) (*models.Member, error) {
	return s.getOrCreateTx(s.db, platformID, groupID)
}

func (s *MemberService) getOrCreateTx(tx *gorm.DB, platformID, groupID string) (*models.Member, error) {
	var m models.Member
	err := tx.Where(models.Member{PlatformID: platformID, GroupID: groupID}).
		Attrs(models.Member{Name: "用户" + platformID}).
		FirstOrCreate(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberService) List(groupID string) ([]models.Member, error) {
	var members []models.Member
	q := s.db.Order("group_id, platform_id")
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	if err := q.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (s *MemberService) GetByID(id uint) (*models.Member, error) {
	var m models.Member
	if err := s.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("member %d", id)
		}
		return nil, err
	}
	return &m, nil
}

func (s *MemberService) UpdateName(id uint, name string) (*models.Member, error) {
	m, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(m).Update("name", name).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a member and nulls out every weak reference to it on
// projects and episodes. Episodes and projects survive untouched.
func (s *MemberService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var m models.Member
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("member %d", id)
			}
			return err
		}

		episodeSlots := []string{"translator_id", "proofreader_id", "typesetter_id", "supervisor_id"}
		for _, col := range episodeSlots {
			if err := tx.Model(&models.Episode{}).Where(col+" = ?", id).
				Update(col, nil).Error; err != nil {
				return err
			}
		}

		projectSlots := []string{"leader_id", "default_translator_id", "default_proofreader_id",
			"default_typesetter_id", "default_supervisor_id"}
		for _, col := range projectSlots {
			if err := tx.Model(&models.Project{}).Where(col+" = ?", id).
				Update(col, nil).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&m).Error; err != nil {
			return err
		}

		LogInfo("member", "delete", "detached and deleted "+m.Display(), m.GroupID, nil)
		return nil
	})
}

// SyncGroupResult summarizes one membership sync run.
type SyncGroupResult struct {
	GroupName string `json:"group_name"`
	Count     int    `json:"count"`
}

// SyncGroup pulls the group's member list from the chat platform and
// upserts every member, refreshing display names and admin flags. The
// cached group name on projects is refreshed too.
func (s *MemberService) SyncGroup(ctx context.Context, groupID string) (*SyncGroupResult, error) {
	if s.client == nil {
		return nil, errors.New("bot client not configured")
	}

	info, err := s.client.GetGroupInfo(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Project{}).Where("group_id = ?", groupID).
		Update("group_name", info.GroupName).Error; err != nil {
		return nil, err
	}

	list, err := s.client.GetGroupMemberList(ctx, groupID)
	if err != nil {
		return nil, err
	}

	for _, gm := range list {
		platformID := strconv.FormatInt(gm.UserID, 10)
		isAdmin := gm.Role == "owner" || gm.Role == "admin"

		var m models.Member
		err := s.db.Where(models.Member{PlatformID: platformID, GroupID: groupID}).
			FirstOrCreate(&m).Error
		if err != nil {
			return nil, err
		}
		if err := s.db.Model(&m).Updates(map[string]interface{}{
			"name":     gm.DisplayName(),
			"is_admin": isAdmin,
		}).Error; err != nil {
			return nil, err
		}
	}

	LogInfo("member", "sync", "synced group members", groupID, map[string]interface{}{"count": len(list)})
	return &SyncGroupResult{GroupName: info.GroupName, Count: len(list)}, nil
}
