package services

import (
	"testing"
	"time"

	"github.com/padoru233/trans-progress/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Member{},
		&models.Project{},
		&models.Episode{},
		&models.GroupSetting{},
		&models.SystemLog{},
		&models.SchedulerLock{},
		&models.AdminUser{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// captureQueue records enqueued tasks instead of delivering them.
type captureQueue struct {
	tasks []*NotifyTask
	fail  bool
}

func (q *captureQueue) Enqueue(task *NotifyTask) error {
	if q.fail {
		return ErrDelivery
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *captureQueue) IsAsync() bool { return false }
func (q *captureQueue) Close() error  { return nil }

func seedMember(t *testing.T, db *gorm.DB, platformID, groupID, name string, isAdmin bool) *models.Member {
	t.Helper()
	m := &models.Member{PlatformID: platformID, GroupID: groupID, Name: name, IsAdmin: isAdmin}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
	return m
}

func seedProject(t *testing.T, db *gorm.DB, name, groupID string, leader *models.Member) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, GroupID: groupID, GroupName: "测试群"}
	if leader != nil {
		p.LeaderID = &leader.ID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return p
}

func seedEpisode(t *testing.T, db *gorm.DB, project *models.Project, title string, status int) *models.Episode {
	t.Helper()
	ep := &models.Episode{ProjectID: project.ID, Title: title, Status: status}
	if err := db.Create(ep).Error; err != nil {
		t.Fatalf("failed to seed episode: %v", err)
	}
	return ep
}

func daysFromNow(days int) *time.Time {
	t := time.Now().AddDate(0, 0, days)
	return &t
}
