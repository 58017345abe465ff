package notification

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/compliance"
)

// Severity classifies a notification
type Severity string

const (
	SeverityUrgent   Severity = "urgent"
	SeverityReminder Severity = "reminder"
	SeveritySuccess  Severity = "success"
)

// Notification is a transient reminder derived from the compliance set.
// Identity is deterministic per source record so wholesale regeneration is
// idempotent.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Severity  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	TargetID  string    `json:"target_id,omitempty"`
}

// GenerateReminders derives the reminder list for a user's preferences.
// The list is empty whenever the in-app channel is disabled, regardless of
// type toggles. Output order follows input record order. Records whose due
// date fails to parse are skipped as unknown.
func GenerateReminders(records []compliance.ComplianceRecord, prefs compliance.UserPreferences, today time.Time) []Notification {
	if !prefs.Notifications.Channels.InApp {
		return []Notification{}
	}

	notifications := make([]Notification, 0)
	types := prefs.Notifications.Types

	for _, rec := range records {
		if rec.Status == compliance.StatusCompleted {
			continue
		}

		days, err := compliance.DaysUntilDue(rec.DueDate, today)
		if err != nil {
			continue
		}

		switch {
		case days < 0 && types.MissedDeadlines:
			notifications = append(notifications, Notification{
				ID:        "overdue-" + rec.ID,
				Title:     "Critical Overdue Task",
				Message:   fmt.Sprintf("%s is %d days past due.", rec.Name, -days),
				Type:      SeverityUrgent,
				Timestamp: today,
				TargetID:  rec.ID,
			})
		case days >= 0 && days <= compliance.UpcomingWindowDays && types.UpcomingDeadlines:
			notifications = append(notifications, Notification{
				ID:        "reminder-" + rec.ID,
				Title:     "Upcoming Deadline",
				Message:   fmt.Sprintf("%s is due in %d days.", rec.Name, days),
				Type:      SeverityReminder,
				Timestamp: today,
				TargetID:  rec.ID,
			})
		}
	}

	return notifications
}

// MarkNotificationRead sets read=true on the matching entry only and
// returns the updated list. Unknown ids leave the list unchanged.
func MarkNotificationRead(notifications []Notification, id string) []Notification {
	out := make([]Notification, len(notifications))
	for i, n := range notifications {
		if n.ID == id {
			n.Read = true
		}
		out[i] = n
	}
	return out
}

// Manager holds the per-session notification list. Regeneration replaces
// the list wholesale; it is never additive.
type Manager struct {
	logger *zap.Logger

	mu            sync.RWMutex
	notifications map[string][]Notification // keyed by user id
}

// NewManager creates an empty notification manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:        logger,
		notifications: make(map[string][]Notification),
	}
}

// Regenerate rebuilds the reminder list for a user and returns it
func (m *Manager) Regenerate(user compliance.User, records []compliance.ComplianceRecord, today time.Time) []Notification {
	generated := GenerateReminders(records, user.Preferences, today)

	m.mu.Lock()
	m.notifications[user.ID] = generated
	m.mu.Unlock()

	m.logger.Info("Reminders regenerated",
		zap.String("user_id", user.ID),
		zap.Int("count", len(generated)),
	)

	return generated
}

// Notifications returns the current list for a user
func (m *Manager) Notifications(userID string) []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.notifications[userID]
	out := make([]Notification, len(list))
	copy(out, list)
	return out
}

// MarkRead acknowledges a single notification. Returns false when no
// notification with that id exists for the user.
func (m *Manager) MarkRead(userID, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.notifications[userID]
	if !ok {
		return false
	}

	found := false
	for _, n := range list {
		if n.ID == id {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	m.notifications[userID] = MarkNotificationRead(list, id)
	return true
}

// Clear drops a user's notification list, e.g. on logout
func (m *Manager) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notifications, userID)
}

// RemarkAdded implements compliance.RemarkListener. No notification is
// fanned out yet; a multi-user delivery path attaches at this seam.
func (m *Manager) RemarkAdded(record compliance.ComplianceRecord, actor compliance.User) {
	m.logger.Debug("Leadership remark recorded",
		zap.String("record_id", record.ID),
		zap.String("actor", actor.Name),
	)
}
