package services

import (
	"testing"

	"github.com/padoru233/trans-progress/internal/models"
)

func TestGetOrCreatePlaceholderName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMemberService(db)

	m, err := svc.GetOrCreate("12345", "g1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if m.Name != "用户12345" {
		t.Errorf("placeholder name = %q", m.Name)
	}

	// A second call returns the same row, keeping any synced name.
	if err := db.Model(m).Update("name", "小明").Error; err != nil {
		t.Fatal(err)
	}
	again, err := svc.GetOrCreate("12345", "g1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if again.ID != m.ID || again.Name != "小明" {
		t.Errorf("expected existing row untouched, got %+v", again)
	}
}

func TestGetOrCreateScopedByGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMemberService(db)

	a, err := svc.GetOrCreate("100", "g1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.GetOrCreate("100", "g2")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("the same platform ID in two groups must be two members")
	}
}

func TestUpdateName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMemberService(db)

	m := seedMember(t, db, "100", "g1", "小明", false)
	updated, err := svc.UpdateName(m.ID, "新名字")
	if err != nil {
		t.Fatalf("UpdateName() error = %v", err)
	}
	if updated.Name != "新名字" {
		t.Errorf("name = %q", updated.Name)
	}

	if _, err := svc.UpdateName(9999, "x"); err == nil {
		t.Error("expected error for unknown member")
	}
}

func TestDeleteMemberDetachesReferences(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMemberService(db)

	m := seedMember(t, db, "100", "g1", "小明", false)
	project := seedProject(t, db, "魔法少年", "g1", m)
	if err := db.Model(project).Update("default_translator_id", m.ID).Error; err != nil {
		t.Fatal(err)
	}
	ep := seedEpisode(t, db, project, "18", models.StatusTranslating)
	if err := db.Model(ep).Updates(map[string]interface{}{
		"translator_id":  m.ID,
		"proofreader_id": m.ID,
	}).Error; err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var gotProject models.Project
	if err := db.First(&gotProject, project.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotProject.LeaderID != nil || gotProject.DefaultTranslatorID != nil {
		t.Errorf("project slots not detached: leader=%v default=%v", gotProject.LeaderID, gotProject.DefaultTranslatorID)
	}

	var gotEp models.Episode
	if err := db.First(&gotEp, ep.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotEp.TranslatorID != nil || gotEp.ProofreaderID != nil {
		t.Error("episode slots not detached")
	}

	var count int64
	db.Model(&models.Member{}).Where("id = ?", m.ID).Count(&count)
	if count != 0 {
		t.Error("member row should be gone")
	}
}

func TestListMembersByGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMemberService(db)

	seedMember(t, db, "100", "g1", "小明", false)
	seedMember(t, db, "200", "g1", "小红", false)
	seedMember(t, db, "300", "g2", "别群", false)

	got, err := svc.List("g1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("listed %d members, expected 2", len(got))
	}
}
