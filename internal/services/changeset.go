package services

import (
	"fmt"
	"time"

	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/utils"
)

// ChangeSet is the structured result of a workflow operation: ordered
// human-readable change lines plus a deduplicated set of members to
// mention. An empty ChangeSet means nothing changed and no notification
// may be sent.
type ChangeSet struct {
	ProjectName  string
	EpisodeTitle string
	GroupID      string
	Lines        []string
	Mentions     []string // platform IDs, deduplicated, in accumulation order
	NotifyAdmins bool     // pipeline completed with no resolvable leader/admin
}

// Empty reports whether the operation was a no-op.
func (cs *ChangeSet) Empty() bool { return len(cs.Lines) == 0 }

func (cs *ChangeSet) addLine(format string, args ...interface{}) {
	cs.Lines = append(cs.Lines, fmt.Sprintf(format, args...))
}

// mention records a member to notify, once per member.
func (cs *ChangeSet) mention(m *models.Member) {
	if m == nil {
		return
	}
	for _, id := range cs.Mentions {
		if id == m.PlatformID {
			return
		}
	}
	cs.Mentions = append(cs.Mentions, m.PlatformID)
}

// StageState is a resolved snapshot of one stage slot used for diffing.
type StageState struct {
	Assignee *models.Member
	Deadline *time.Time
}

// EpisodeState is a resolved snapshot of every tracked episode field.
type EpisodeState struct {
	Title  string
	Status int
	Stages map[int]StageState
}

// TransitionTarget is the party responsible after a status change:
// the new stage's assignee, or on completion the project leader falling
// back to a group admin, or nobody (Generic) when neither resolves.
type TransitionTarget struct {
	Member  *models.Member
	Generic bool
}

func sameMember(a, b *models.Member) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// diffEpisodeStates appends change lines in field declaration order
// (title, status, each role in pipeline order, each deadline in pipeline
// order) and accumulates the notify-set. Deadlines compare by calendar
// date; assignees by identity. transition is consulted only when the
// status actually changed.
func diffEpisodeStates(cs *ChangeSet, old, new EpisodeState, transition *TransitionTarget) {
	if old.Title != new.Title {
		cs.addLine("标题: %s → %s", old.Title, new.Title)
	}

	if old.Status != new.Status {
		cs.addLine("状态: %s → %s", models.StatusName(old.Status), models.StatusName(new.Status))
		if transition != nil {
			if transition.Member != nil {
				cs.mention(transition.Member)
			} else if transition.Generic {
				cs.NotifyAdmins = true
			}
		}
	}

	for _, stage := range models.WorkStages {
		o, n := old.Stages[stage], new.Stages[stage]
		if !sameMember(o.Assignee, n.Assignee) {
			cs.addLine("%s: %s → %s", models.StatusName(stage), o.Assignee.Display(), n.Assignee.Display())
			cs.mention(n.Assignee)
		}
	}

	for _, stage := range models.WorkStages {
		o, n := old.Stages[stage], new.Stages[stage]
		if !utils.SameDate(o.Deadline, n.Deadline) {
			cs.addLine("%s死线: %s → %s", models.StatusName(stage),
				utils.FormatDeadline(o.Deadline), utils.FormatDeadline(n.Deadline))
			// The party working that stage should hear about its deadline
			// moving; prefer the incoming assignee.
			if n.Assignee != nil {
				cs.mention(n.Assignee)
			} else {
				cs.mention(o.Assignee)
			}
		}
	}
}
