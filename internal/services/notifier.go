package services

import (
	"github.com/padoru233/trans-progress/pkg/logger"
)

// Notifier pushes composed payloads onto the notification queue.
// Delivery is best-effort and decoupled from the state change that
// produced the payload: failures are logged, never propagated.
type Notifier struct {
	queue TaskQueue
}

func NewNotifier(queue TaskQueue) *Notifier {
	return &Notifier{queue: queue}
}

// NotifyChange composes and dispatches a workflow ChangeSet. A no-op
// ChangeSet is suppressed entirely; an empty "nothing changed" message
// is never sent.
func (n *Notifier) NotifyChange(cs *ChangeSet) {
	if cs == nil || cs.Empty() {
		return
	}
	n.Notify(cs.GroupID, ComposeChange(cs))
}

// Notify dispatches an arbitrary payload to a group.
func (n *Notifier) Notify(groupID string, payload Payload) {
	if len(payload) == 0 {
		return
	}
	if err := n.queue.Enqueue(&NotifyTask{GroupID: groupID, Payload: payload}); err != nil {
		logger.Warn().Err(err).Str("group", groupID).Msg("notification delivery failed")
		LogWarning("notify", "send", "delivery failed: "+err.Error(), groupID, nil)
	}
}
