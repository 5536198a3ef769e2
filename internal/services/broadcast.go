package services

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/pkg/logger"
	"gorm.io/gorm"
)

const broadcastLockName = "broadcast"

// BroadcastService scans active episodes for breached or due deadlines
// and hands aggregated per-group payloads to the notification queue.
// A delivery failure for one group never stops the scan for the rest.
type BroadcastService struct {
	db         *gorm.DB
	queue      TaskQueue
	settingSvc *GroupSettingService
	instanceID string
}

func NewBroadcastService(db *gorm.DB, queue TaskQueue, defaultTime string) *BroadcastService {
	host, _ := os.Hostname()
	return &BroadcastService{
		db:         db,
		queue:      queue,
		settingSvc: NewGroupSettingService(db, defaultTime),
		instanceID: host + "/" + strconv.Itoa(os.Getpid()),
	}
}

// RunScheduled performs one minute-tick evaluation: every group whose
// broadcast setting is enabled and whose configured time equals the
// current wall-clock "HH:MM" receives one aggregated message, and only
// when it has at least one urgent episode. Missed minutes are never
// caught up.
func (s *BroadcastService) RunScheduled(now time.Time) {
	hhmm := now.Format("15:04")
	runID := uuid.NewString()

	groups, err := s.collectActiveByGroup("")
	if err != nil {
		logger.Error().Err(err).Str("run", runID).Msg("broadcast scan failed")
		return
	}

	for groupID, eps := range groups {
		setting, err := s.settingSvc.Get(groupID)
		if err != nil {
			logger.Warn().Err(err).Str("group", groupID).Msg("broadcast setting lookup failed")
			continue
		}
		if !setting.BroadcastEnabled || setting.BroadcastTime != hhmm {
			continue
		}
		if !s.acquireLock(groupID, now) {
			continue // another instance already fired for this minute
		}

		res := scanEpisodes(groupID, eps, false, now)
		if len(res.Items) == 0 {
			continue
		}

		payload := ComposeScan(res, false, now)
		if err := s.queue.Enqueue(&NotifyTask{GroupID: groupID, Payload: payload}); err != nil {
			logger.Warn().Err(err).Str("group", groupID).Str("run", runID).Msg("broadcast delivery failed")
			LogWarning("broadcast", "scheduled", "delivery failed: "+err.Error(), groupID, nil)
			continue
		}
		LogInfo("broadcast", "scheduled", "sent deadline broadcast", groupID, map[string]interface{}{
			"run":      runID,
			"episodes": len(res.Items),
		})
	}
}

// RunManual targets exactly one group, ignores the enabled/time gate,
// includes in-progress episodes, and always sends exactly one message.
func (s *BroadcastService) RunManual(groupID string) error {
	now := time.Now()

	groups, err := s.collectActiveByGroup(groupID)
	if err != nil {
		return err
	}

	res := scanEpisodes(groupID, groups[groupID], true, now)
	payload := ComposeScan(res, true, now)

	if err := s.queue.Enqueue(&NotifyTask{GroupID: groupID, Payload: payload}); err != nil {
		// Delivery is best-effort; the trigger itself succeeded.
		logger.Warn().Err(err).Str("group", groupID).Msg("manual broadcast delivery failed")
		LogWarning("broadcast", "manual", "delivery failed: "+err.Error(), groupID, nil)
		return nil
	}
	LogInfo("broadcast", "manual", "sent manual broadcast", groupID, nil)
	return nil
}

// collectActiveByGroup loads all active (in-pipeline) episodes in one
// pass and buckets them by their project's chat group.
func (s *BroadcastService) collectActiveByGroup(groupFilter string) (map[string][]models.Episode, error) {
	q := s.db.Preload("Project").
		Preload("Translator").Preload("Proofreader").
		Preload("Typesetter").Preload("Supervisor").
		Where("status BETWEEN ? AND ?", models.StatusTranslating, models.StatusSupervising)
	if groupFilter != "" {
		q = q.Joins("JOIN projects ON projects.id = episodes.project_id").
			Where("projects.group_id = ?", groupFilter)
	}

	var eps []models.Episode
	if err := q.Find(&eps).Error; err != nil {
		return nil, err
	}

	groups := make(map[string][]models.Episode)
	for _, ep := range eps {
		if ep.Project == nil {
			continue
		}
		groups[ep.Project.GroupID] = append(groups[ep.Project.GroupID], ep)
	}
	return groups, nil
}

// scanEpisodes classifies one group's active episodes. Episodes without
// a deadline on their current stage are skipped; non-urgent episodes
// appear only on manual runs.
func scanEpisodes(groupID string, eps []models.Episode, manual bool, now time.Time) ScanResult {
	res := ScanResult{GroupID: groupID, HasActive: len(eps) > 0}

	for _, ep := range eps {
		stage := ep.Status
		ddl := ep.Deadline(stage)
		if ddl == nil {
			continue
		}

		urgency, days := ClassifyDeadline(now, *ddl)
		if urgency == NotUrgent && !manual {
			continue
		}

		item := ScanItem{
			ProjectName:  ep.Project.Name,
			EpisodeTitle: ep.Title,
			Stage:        stage,
			StageName:    models.StatusName(stage),
			Urgency:      urgency,
			OverdueDays:  days,
		}
		if a := ep.Assignee(stage); a != nil {
			item.AssigneeID = a.PlatformID
		}
		res.Items = append(res.Items, item)
	}
	return res
}

// acquireLock inserts a (group, minute) lock row; a conflict means this
// minute was already handled, possibly by another process.
func (s *BroadcastService) acquireLock(groupID string, now time.Time) bool {
	// Opportunistic cleanup of stale rows.
	s.db.Where("expires_at < ?", now).Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		LockName:  broadcastLockName,
		LockKey:   groupID + "@" + now.Format("2006-01-02T15:04"),
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	return s.db.Create(&lock).Error == nil
}
