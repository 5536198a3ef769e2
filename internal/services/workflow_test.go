package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/utils"
	"gorm.io/gorm"
)

func reloadEpisode(t *testing.T, db *gorm.DB, id uint) *models.Episode {
	t.Helper()
	var ep models.Episode
	if err := db.First(&ep, id).Error; err != nil {
		t.Fatalf("failed to reload episode: %v", err)
	}
	return &ep
}

func TestAdvanceByAssignee(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	trans := seedMember(t, db, "100", "g1", "小明", false)
	proof := seedMember(t, db, "200", "g1", "小红", false)
	project := seedProject(t, db, "魔法少年", "g1", nil)
	ep := &models.Episode{
		ProjectID:     project.ID,
		Title:         "18",
		Status:        models.StatusTranslating,
		TranslatorID:  &trans.ID,
		ProofreaderID: &proof.ID,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	cs, err := svc.AttemptAdvance("魔法少年", "18", Actor{PlatformID: "100"})
	if err != nil {
		t.Fatalf("AttemptAdvance() error = %v", err)
	}

	if len(cs.Lines) != 1 || cs.Lines[0] != "状态: 翻译 → 校对" {
		t.Errorf("lines = %v, expected single status line", cs.Lines)
	}
	if len(cs.Mentions) != 1 || cs.Mentions[0] != "200" {
		t.Errorf("mentions = %v, expected the proofreader", cs.Mentions)
	}

	got := reloadEpisode(t, db, ep.ID)
	if got.Status != models.StatusProofing {
		t.Errorf("status = %d, expected %d", got.Status, models.StatusProofing)
	}
	if got.DdlProof == nil {
		t.Fatal("proofing deadline should be stamped on advance")
	}
	want := utils.DefaultDeadline(time.Now())
	if !utils.SameDate(got.DdlProof, &want) {
		t.Errorf("stamped deadline = %v, expected ~%v", got.DdlProof, want)
	}
}

func TestAdvanceKeepsExistingDeadline(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	trans := seedMember(t, db, "100", "g1", "小明", false)
	project := seedProject(t, db, "魔法少年", "g1", nil)
	preset := daysFromNow(3)
	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        "18",
		Status:       models.StatusTranslating,
		TranslatorID: &trans.ID,
		DdlProof:     preset,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AttemptAdvance("魔法少年", "18", Actor{PlatformID: "100"}); err != nil {
		t.Fatalf("AttemptAdvance() error = %v", err)
	}

	got := reloadEpisode(t, db, ep.ID)
	if !utils.SameDate(got.DdlProof, preset) {
		t.Errorf("preset deadline was overwritten: %v", got.DdlProof)
	}
}

func TestAdvanceSkipsSupervisingWhenUnconfigured(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	typ := seedMember(t, db, "300", "g1", "小刚", false)
	leader := seedMember(t, db, "400", "g1", "组长", false)
	project := seedProject(t, db, "魔法少年", "g1", leader)
	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        "18",
		Status:       models.StatusTypesetting,
		TypesetterID: &typ.ID,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	cs, err := svc.AttemptAdvance("魔法少年", "18", Actor{PlatformID: "300"})
	if err != nil {
		t.Fatalf("AttemptAdvance() error = %v", err)
	}

	if cs.Lines[0] != "状态: 嵌字 → 完结" {
		t.Errorf("line = %q, expected straight to done", cs.Lines[0])
	}
	if len(cs.Mentions) != 1 || cs.Mentions[0] != "400" {
		t.Errorf("mentions = %v, expected the leader", cs.Mentions)
	}
	if got := reloadEpisode(t, db, ep.ID); got.Status != models.StatusDone {
		t.Errorf("status = %d, expected done", got.Status)
	}
}

func TestAdvanceEntersSupervisingWhenConfigured(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	typ := seedMember(t, db, "300", "g1", "小刚", false)
	sup := seedMember(t, db, "500", "g1", "监修", false)
	project := seedProject(t, db, "魔法少年", "g1", nil)
	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        "18",
		Status:       models.StatusTypesetting,
		TypesetterID: &typ.ID,
		SupervisorID: &sup.ID,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	cs, err := svc.AttemptAdvance("魔法少年", "18", Actor{PlatformID: "300"})
	if err != nil {
		t.Fatalf("AttemptAdvance() error = %v", err)
	}

	if cs.Lines[0] != "状态: 嵌字 → 监修" {
		t.Errorf("line = %q, expected supervising", cs.Lines[0])
	}
	got := reloadEpisode(t, db, ep.ID)
	if got.Status != models.StatusSupervising {
		t.Errorf("status = %d, expected supervising", got.Status)
	}
	if got.DdlSupervise == nil {
		t.Error("supervise deadline should be stamped")
	}
}

func TestAdvanceTerminalAndUnstarted(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	project := seedProject(t, db, "魔法少年", "g1", nil)
	seedEpisode(t, db, project, "1", models.StatusDone)
	seedEpisode(t, db, project, "2", models.StatusNotStarted)

	if _, err := svc.AttemptAdvance("魔法少年", "1", Actor{IsGroupAdmin: true}); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("done episode: err = %v, expected ErrAlreadyTerminal", err)
	}
	if _, err := svc.AttemptAdvance("魔法少年", "2", Actor{IsGroupAdmin: true}); !errors.Is(err, ErrStageUnassigned) {
		t.Errorf("unstarted episode: err = %v, expected ErrStageUnassigned", err)
	}
}

func TestAdvancePermission(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	trans := seedMember(t, db, "100", "g1", "小明", false)
	leader := seedMember(t, db, "400", "g1", "组长", false)
	seedMember(t, db, "600", "g1", "群管", true)
	project := seedProject(t, db, "魔法少年", "g1", leader)

	newEp := func(title string) {
		ep := &models.Episode{
			ProjectID:    project.ID,
			Title:        title,
			Status:       models.StatusTranslating,
			TranslatorID: &trans.ID,
		}
		if err := db.Create(ep).Error; err != nil {
			t.Fatal(err)
		}
	}

	newEp("1")
	_, err := svc.AttemptAdvance("魔法少年", "1", Actor{PlatformID: "999"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("stranger: err = %v, expected ErrPermissionDenied", err)
	}
	if !strings.Contains(err.Error(), "小明(100)") {
		t.Errorf("denial should name the assignee, got %q", err.Error())
	}

	// Leader may advance any stage.
	if _, err := svc.AttemptAdvance("魔法少年", "1", Actor{PlatformID: "400"}); err != nil {
		t.Errorf("leader: err = %v", err)
	}

	// Platform-reported group admin may advance.
	newEp("2")
	if _, err := svc.AttemptAdvance("魔法少年", "2", Actor{PlatformID: "999", IsGroupAdmin: true}); err != nil {
		t.Errorf("group admin flag: err = %v", err)
	}

	// Synced admin flag is the fallback when the event lacks the role.
	newEp("3")
	if _, err := svc.AttemptAdvance("魔法少年", "3", Actor{PlatformID: "600"}); err != nil {
		t.Errorf("synced admin: err = %v", err)
	}
}

func TestAdvanceDoneNotifyFallbacks(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	typ := seedMember(t, db, "300", "g1", "小刚", false)
	admin := seedMember(t, db, "600", "g1", "群管", true)

	// No leader: first group admin gets the mention.
	project := seedProject(t, db, "魔法少年", "g1", nil)
	ep := &models.Episode{ProjectID: project.ID, Title: "18", Status: models.StatusTypesetting, TypesetterID: &typ.ID}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}
	cs, err := svc.AttemptAdvance("魔法少年", "18", Actor{PlatformID: "300"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.Mentions) != 1 || cs.Mentions[0] != admin.PlatformID {
		t.Errorf("mentions = %v, expected group admin fallback", cs.Mentions)
	}

	// No leader, no admin in another group: generic marker.
	typ2 := seedMember(t, db, "300", "g2", "小刚", false)
	project2 := seedProject(t, db, "无人区", "g2", nil)
	ep2 := &models.Episode{ProjectID: project2.ID, Title: "1", Status: models.StatusTypesetting, TypesetterID: &typ2.ID}
	if err := db.Create(ep2).Error; err != nil {
		t.Fatal(err)
	}
	cs2, err := svc.AttemptAdvance("无人区", "1", Actor{PlatformID: "300"})
	if err != nil {
		t.Fatal(err)
	}
	if !cs2.NotifyAdmins || len(cs2.Mentions) != 0 {
		t.Errorf("expected generic NotifyAdmins, got mentions=%v notifyAdmins=%v", cs2.Mentions, cs2.NotifyAdmins)
	}
}

func TestApplyEditNoChange(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	trans := seedMember(t, db, "100", "g1", "小明", false)
	project := seedProject(t, db, "魔法少年", "g1", nil)
	ddl := daysFromNow(5)
	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        "18",
		Status:       models.StatusTranslating,
		TranslatorID: &trans.ID,
		DdlTrans:     ddl,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	cs, err := svc.ApplyEdit(ep.ID, &EpisodeEditForm{
		Title:        "18",
		Status:       models.StatusTranslating,
		TranslatorID: "100",
		DdlTrans:     ddl,
	})
	if err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if !cs.Empty() {
		t.Errorf("no-op edit should yield empty change set, got %v", cs.Lines)
	}
}

func TestApplyEditDiffsAndCreatesMembers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	trans := seedMember(t, db, "100", "g1", "小明", false)
	project := seedProject(t, db, "魔法少年", "g1", nil)
	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        "18",
		Status:       models.StatusTranslating,
		TranslatorID: &trans.ID,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	ddl := daysFromNow(7)
	cs, err := svc.ApplyEdit(ep.ID, &EpisodeEditForm{
		Title:         "18 (重置)",
		Status:        models.StatusTranslating,
		TranslatorID:  "100",
		ProofreaderID: "777", // never seen before
		DdlProof:      ddl,
	})
	if err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	if len(cs.Lines) != 3 {
		t.Fatalf("lines = %v, expected title, role and deadline changes", cs.Lines)
	}
	if !strings.HasPrefix(cs.Lines[0], "标题:") {
		t.Errorf("first line should be the title change, got %q", cs.Lines[0])
	}
	if !strings.Contains(cs.Lines[1], "校对:") || !strings.Contains(cs.Lines[1], "用户777(777)") {
		t.Errorf("role line = %q", cs.Lines[1])
	}
	if !strings.Contains(cs.Lines[2], "校对死线:") {
		t.Errorf("deadline line = %q", cs.Lines[2])
	}

	var created models.Member
	if err := db.Where("platform_id = ? AND group_id = ?", "777", "g1").First(&created).Error; err != nil {
		t.Fatalf("member 777 should have been lazily created: %v", err)
	}
	if created.Name != "用户777" {
		t.Errorf("placeholder name = %q", created.Name)
	}
}

func TestApplyEditUnassignsSlot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	trans := seedMember(t, db, "100", "g1", "小明", false)
	project := seedProject(t, db, "魔法少年", "g1", nil)
	ep := &models.Episode{
		ProjectID:    project.ID,
		Title:        "18",
		Status:       models.StatusTranslating,
		TranslatorID: &trans.ID,
	}
	if err := db.Create(ep).Error; err != nil {
		t.Fatal(err)
	}

	cs, err := svc.ApplyEdit(ep.ID, &EpisodeEditForm{
		Title:  "18",
		Status: models.StatusTranslating,
		// TranslatorID empty: slot cleared
	})
	if err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if len(cs.Lines) != 1 || !strings.Contains(cs.Lines[0], "未分配") {
		t.Errorf("lines = %v, expected unassignment line", cs.Lines)
	}
	if got := reloadEpisode(t, db, ep.ID); got.TranslatorID != nil {
		t.Error("translator slot should be cleared")
	}
}

func TestApplyEditRejectsInvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorkflowService(db)

	if _, err := svc.ApplyEdit(1, &EpisodeEditForm{Title: "x", Status: 42}); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, expected ErrValidation", err)
	}
}

func TestFindProjectByRef(t *testing.T) {
	db := setupTestDB(t)

	p := seedProject(t, db, "魔法少年", "g1", nil)
	db.Model(p).Update("alias", "mfsn, 魔少")

	byName, err := FindProjectByRef(db, "魔法少年")
	if err != nil || byName.ID != p.ID {
		t.Errorf("by name: %v, %v", byName, err)
	}

	byAlias, err := FindProjectByRef(db, "魔少")
	if err != nil || byAlias.ID != p.ID {
		t.Errorf("by alias: %v, %v", byAlias, err)
	}

	if _, err := FindProjectByRef(db, "不存在"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown ref: err = %v, expected ErrNotFound", err)
	}
}
