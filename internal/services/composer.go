package services

import (
	"fmt"
	"time"

	"github.com/padoru233/trans-progress/internal/utils"
)

// Segment is one piece of an outbound group message: either plain text
// or an at-mention of a platform member. Keeping mentions structural
// lets the transport decide how to render them.
type Segment struct {
	Text string `json:"text,omitempty"`
	At   string `json:"at,omitempty"` // platform ID to mention
}

// Payload is a composed group message. Composition is pure; no I/O
// happens until a Sender serializes and delivers it.
type Payload []Segment

func text(s string) Segment { return Segment{Text: s} }
func at(id string) Segment  { return Segment{At: id} }

// Urgency classifies a stage deadline against today's date.
type Urgency int

const (
	NotUrgent Urgency = iota
	DueToday
	Overdue
)

// ClassifyDeadline is a total function of (today, deadline): a deadline
// date before today is overdue by the returned number of days; equal is
// due today; later is not urgent. Time of day never participates.
func ClassifyDeadline(today, deadline time.Time) (Urgency, int) {
	days := utils.DaysBetween(deadline, today)
	switch {
	case days > 0:
		return Overdue, days
	case days == 0:
		return DueToday, 0
	default:
		return NotUrgent, 0
	}
}

// ComposeChange renders a workflow ChangeSet: header naming the project
// and episode, enumerated change lines, trailing mention block. Callers
// must not invoke it for an empty ChangeSet.
func ComposeChange(cs *ChangeSet) Payload {
	p := Payload{text(fmt.Sprintf("🔄 【%s %s】更新：\n", cs.ProjectName, cs.EpisodeTitle))}
	for i, line := range cs.Lines {
		p = append(p, text(fmt.Sprintf("%d. %s\n", i+1, line)))
	}
	if len(cs.Mentions) > 0 {
		p = append(p, text("请 "))
		for _, id := range cs.Mentions {
			p = append(p, at(id), text(" "))
		}
		p = append(p, text("知悉"))
	} else if cs.NotifyAdmins {
		p = append(p, text("⚠️ 请管理员关注"))
	}
	return p
}

// ScanItem is one active episode picked up by a deadline scan.
type ScanItem struct {
	ProjectName  string
	EpisodeTitle string
	Stage        int // current stage
	StageName    string
	AssigneeID   string // platform ID, empty when unassigned
	Urgency      Urgency
	OverdueDays  int
}

// ScanResult aggregates one group's scan.
type ScanResult struct {
	GroupID   string
	Items     []ScanItem
	HasActive bool // the group had active episodes at all (items may still be empty)
}

// ComposeScan renders a deadline scan for one group. Scheduled runs list
// only urgent episodes; manual runs additionally list in-progress ones
// and always produce a message, even when there is nothing to chase.
func ComposeScan(res ScanResult, manual bool, now time.Time) Payload {
	if manual && !res.HasActive {
		return Payload{text("🔍 当前没有进行中的任务。")}
	}
	if manual && len(res.Items) == 0 {
		return Payload{text("✅ 当前所有任务都在死线内，暂无需催更。")}
	}

	var p Payload
	if manual {
		p = append(p, text("🔔 催更提醒：\n"))
	} else {
		p = append(p, text(fmt.Sprintf("📅 每日死线播报 (%s)：\n", now.Format("01-02"))))
	}

	for _, item := range res.Items {
		var prefix string
		switch item.Urgency {
		case Overdue:
			prefix = fmt.Sprintf("❌ [超期%d天]", item.OverdueDays)
		case DueToday:
			prefix = "⚠️ [今天截止]"
		default:
			prefix = "⏳ [进行中]"
		}

		p = append(p, text(fmt.Sprintf("%s %s %s (%s) ", prefix, item.ProjectName, item.EpisodeTitle, item.StageName)))
		if item.AssigneeID != "" {
			p = append(p, at(item.AssigneeID))
		} else {
			p = append(p, text("未分配"))
		}
		p = append(p, text("\n"))
	}

	if manual {
		p = append(p, text("\n(管理员手动触发)"))
	} else {
		p = append(p, text("\n加油！"))
	}
	return p
}

// PlainText flattens a payload for logs and tests; mentions render as @id.
func (p Payload) PlainText() string {
	var out string
	for _, seg := range p {
		if seg.At != "" {
			out += "@" + seg.At
		} else {
			out += seg.Text
		}
	}
	return out
}
