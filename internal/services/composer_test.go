package services

import (
	"strings"
	"testing"
	"time"
)

func TestClassifyDeadline(t *testing.T) {
	today := time.Date(2024, 3, 10, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		deadline time.Time
		urgency  Urgency
		days     int
	}{
		{"overdue by three days", time.Date(2024, 3, 7, 23, 0, 0, 0, time.Local), Overdue, 3},
		{"due today regardless of hour", time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local), DueToday, 0},
		{"due tomorrow", time.Date(2024, 3, 11, 1, 0, 0, 0, time.Local), NotUrgent, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urgency, days := ClassifyDeadline(today, tt.deadline)
			if urgency != tt.urgency || days != tt.days {
				t.Errorf("ClassifyDeadline = (%v, %d), expected (%v, %d)", urgency, days, tt.urgency, tt.days)
			}
		})
	}
}

func TestComposeChange(t *testing.T) {
	cs := &ChangeSet{
		ProjectName:  "魔法少年",
		EpisodeTitle: "18",
		Lines:        []string{"状态: 翻译 → 校对", "校对死线: 未设定 → 03-20"},
		Mentions:     []string{"200", "300"},
	}

	got := ComposeChange(cs).PlainText()

	if !strings.HasPrefix(got, "🔄 【魔法少年 18】更新：\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "1. 状态: 翻译 → 校对\n") {
		t.Errorf("missing first numbered line: %q", got)
	}
	if !strings.Contains(got, "2. 校对死线: 未设定 → 03-20\n") {
		t.Errorf("missing second numbered line: %q", got)
	}
	if !strings.Contains(got, "请 @200 @300 知悉") {
		t.Errorf("missing mention block: %q", got)
	}
}

func TestComposeChangeNotifyAdmins(t *testing.T) {
	cs := &ChangeSet{
		ProjectName:  "魔法少年",
		EpisodeTitle: "18",
		Lines:        []string{"状态: 嵌字 → 完结"},
		NotifyAdmins: true,
	}

	got := ComposeChange(cs).PlainText()
	if !strings.Contains(got, "⚠️ 请管理员关注") {
		t.Errorf("admin fallback missing: %q", got)
	}
}

func TestComposeScanScheduled(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.Local)
	res := ScanResult{
		GroupID:   "12345",
		HasActive: true,
		Items: []ScanItem{
			{ProjectName: "魔法少年", EpisodeTitle: "17", StageName: "校对", AssigneeID: "200", Urgency: Overdue, OverdueDays: 2},
			{ProjectName: "魔法少年", EpisodeTitle: "18", StageName: "翻译", Urgency: DueToday},
		},
	}

	got := ComposeScan(res, false, now).PlainText()

	if !strings.HasPrefix(got, "📅 每日死线播报 (03-10)：\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "❌ [超期2天] 魔法少年 17 (校对) @200") {
		t.Errorf("overdue line wrong: %q", got)
	}
	if !strings.Contains(got, "⚠️ [今天截止] 魔法少年 18 (翻译) 未分配") {
		t.Errorf("due-today line wrong: %q", got)
	}
	if !strings.HasSuffix(got, "\n加油！") {
		t.Errorf("missing scheduled footer: %q", got)
	}
}

func TestComposeScanManual(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.Local)
	res := ScanResult{
		GroupID:   "12345",
		HasActive: true,
		Items: []ScanItem{
			{ProjectName: "魔法少年", EpisodeTitle: "19", StageName: "嵌字", AssigneeID: "300", Urgency: NotUrgent},
		},
	}

	got := ComposeScan(res, true, now).PlainText()

	if !strings.HasPrefix(got, "🔔 催更提醒：\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "⏳ [进行中] 魔法少年 19 (嵌字) @300") {
		t.Errorf("in-progress line wrong: %q", got)
	}
	if !strings.HasSuffix(got, "\n(管理员手动触发)") {
		t.Errorf("missing manual footer: %q", got)
	}
}

func TestComposeScanManualEmptyCases(t *testing.T) {
	now := time.Now()

	noActive := ComposeScan(ScanResult{GroupID: "1"}, true, now).PlainText()
	if noActive != "🔍 当前没有进行中的任务。" {
		t.Errorf("no-active message = %q", noActive)
	}

	allOnTrack := ComposeScan(ScanResult{GroupID: "1", HasActive: true}, true, now).PlainText()
	if allOnTrack != "✅ 当前所有任务都在死线内，暂无需催更。" {
		t.Errorf("all-on-track message = %q", allOnTrack)
	}
}
