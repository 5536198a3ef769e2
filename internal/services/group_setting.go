package services

import (
	"errors"

	"github.com/padoru233/trans-progress/internal/config"
	"github.com/padoru233/trans-progress/internal/models"
	"gorm.io/gorm"
)

// GroupSettingService stores per-group broadcast preferences. A group
// without a row behaves as if broadcasting is enabled at the default
// time; rows are only created when a group customizes something.
type GroupSettingService struct {
	db          *gorm.DB
	defaultTime string
}

func NewGroupSettingService(db *gorm.DB, defaultTime string) *GroupSettingService {
	if !config.ValidTimeOfDay(defaultTime) {
		defaultTime = "10:00"
	}
	return &GroupSettingService{db: db, defaultTime: defaultTime}
}

// Get returns the group's effective setting, falling back to defaults
// when no row exists.
func (s *GroupSettingService) Get(groupID string) (*models.GroupSetting, error) {
	var setting models.GroupSetting
	err := s.db.Where("group_id = ?", groupID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.GroupSetting{
			GroupID:          groupID,
			BroadcastEnabled: true,
			BroadcastTime:    s.defaultTime,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if setting.BroadcastTime == "" {
		setting.BroadcastTime = s.defaultTime
	}
	return &setting, nil
}

// Upsert creates or updates the group's setting row.
func (s *GroupSettingService) Upsert(groupID string, enabled bool, broadcastTime string) (*models.GroupSetting, error) {
	if broadcastTime == "" {
		broadcastTime = s.defaultTime
	}
	if !config.ValidTimeOfDay(broadcastTime) {
		return nil, validationf("无效的时间格式，应为 HH:MM：%s", broadcastTime)
	}

	var setting models.GroupSetting
	err := s.db.Where("group_id = ?", groupID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.GroupSetting{
			GroupID:          groupID,
			BroadcastEnabled: enabled,
			BroadcastTime:    broadcastTime,
		}
		if err := s.db.Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"broadcast_enabled": enabled,
		"broadcast_time":    broadcastTime,
	}
	if err := s.db.Model(&setting).Updates(updates).Error; err != nil {
		return nil, err
	}
	setting.BroadcastEnabled = enabled
	setting.BroadcastTime = broadcastTime
	return &setting, nil
}

// List returns all customized group settings.
func (s *GroupSettingService) List() ([]models.GroupSetting, error) {
	var settings []models.GroupSetting
	if err := s.db.Order("group_id").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
