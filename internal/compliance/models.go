package compliance

import (
	"time"
)

// Role identifies the signed-in user's role on the dashboard
type Role string

const (
	RoleCEOCFO  Role = "CEO / CFO"
	RoleManager Role = "Manager"
	RoleAuditor Role = "Auditor"
)

// Valid reports whether the role is one of the three dashboard roles
func (r Role) Valid() bool {
	switch r {
	case RoleCEOCFO, RoleManager, RoleAuditor:
		return true
	}
	return false
}

// CanEditLeadershipRemarks reports whether the role may set leadership remarks
func (r Role) CanEditLeadershipRemarks() bool {
	return r == RoleCEOCFO || r == RoleManager
}

// CanRecordRevenue reports whether the role may append revenue entries.
// Recording is an auditor duty; leadership and managers review only.
func (r Role) CanRecordRevenue() bool {
	return r == RoleAuditor
}

// Status is the completion state of a compliance record.
// The three states are fully connected; any state is reachable from any
// other via an explicit user update and none is terminal.
type Status string

const (
	StatusCompleted    Status = "Completed"
	StatusWIP          Status = "Work In Progress"
	StatusNotCompleted Status = "Not Completed"
)

// Valid reports whether the status is one of the three permitted states
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusWIP, StatusNotCompleted:
		return true
	}
	return false
}

// Criticality is the priority tier of a compliance record, independent of status
type Criticality string

const (
	CriticalityLow    Criticality = "Low"
	CriticalityMedium Criticality = "Medium"
	CriticalityHigh   Criticality = "High"
)

// Frequency describes how often a statutory obligation recurs
type Frequency string

const (
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
	FrequencyAnnual    Frequency = "Annual"
)

// ComplianceRecord represents a trackable statutory obligation.
// DueDate carries the ambiguous wire encoding: a 1-2 digit numeral meaning
// "day of every month" for monthly items, or a full ISO calendar date for
// quarterly/annual items. ParseDueDate resolves the encoding into a tagged
// variant at the boundary.
type ComplianceRecord struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	DueDate                string      `json:"due_date"`
	Frequency              Frequency   `json:"frequency"`
	Status                 Status      `json:"status"`
	Criticality            Criticality `json:"criticality"`
	ActualCompletionDate   string      `json:"actual_completion_date,omitempty"`
	DelayReason            string      `json:"delay_reason,omitempty"`
	DelayDays              int         `json:"delay_days"`
	ExpectedCompletionDate string      `json:"expected_completion_date,omitempty"`
	AuditorRemarks         string      `json:"auditor_remarks,omitempty"`
	LeadershipRemarks      string      `json:"leadership_remarks,omitempty"`
	OtherObservations      string      `json:"other_observations,omitempty"`
	LastUpdated            time.Time   `json:"last_updated"`
}

// RevenueRecord represents a single revenue entry. Revenue records are
// immutable once created; the only operation is append.
type RevenueRecord struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Source   string  `json:"source"`
	Mode     string  `json:"mode"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

// User represents a signed-in dashboard user
type User struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	Preferences UserPreferences `json:"preferences"`
}

// UserPreferences holds per-session dashboard preferences. Preferences are
// not persisted across sessions.
type UserPreferences struct {
	DefaultFrequencyFilter string                  `json:"default_frequency_filter"`
	PreferredReportFormat  string                  `json:"preferred_report_format"`
	VisibleWidgets         WidgetToggles           `json:"visible_widgets"`
	Notifications          NotificationPreferences `json:"notifications"`
}

// WidgetToggles controls dashboard widget visibility
type WidgetToggles struct {
	StatsSummary       bool `json:"stats_summary"`
	CompliancePieChart bool `json:"compliance_pie_chart"`
	PendingTable       bool `json:"pending_table"`
	DeadlineTracker    bool `json:"deadline_tracker"`
}

// NotificationPreferences splits notification settings into type toggles
// and delivery channel toggles
type NotificationPreferences struct {
	Types    NotificationTypes    `json:"types"`
	Channels NotificationChannels `json:"channels"`
}

// NotificationTypes enables or disables individual notification categories
type NotificationTypes struct {
	MissedDeadlines   bool `json:"missed_deadlines"`
	NewRemarks        bool `json:"new_remarks"`
	UpcomingDeadlines bool `json:"upcoming_deadlines"`
	RevenueAlerts     bool `json:"revenue_alerts"`
}

// NotificationChannels enables or disables delivery channels. When InApp is
// disabled the reminder list is always empty regardless of type toggles.
type NotificationChannels struct {
	InApp bool `json:"in_app"`
	Email bool `json:"email"`
}

// DefaultPreferences returns the preferences assigned to a fresh session
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		DefaultFrequencyFilter: "All",
		PreferredReportFormat:  "PDF",
		VisibleWidgets: WidgetToggles{
			StatsSummary:       true,
			CompliancePieChart: true,
			PendingTable:       true,
			DeadlineTracker:    true,
		},
		Notifications: NotificationPreferences{
			Types: NotificationTypes{
				MissedDeadlines:   true,
				NewRemarks:        true,
				UpcomingDeadlines: true,
				RevenueAlerts:     false,
			},
			Channels: NotificationChannels{
				InApp: true,
				Email: true,
			},
		},
	}
}

// RecordUpdate is a partial update of a compliance record. Nil fields are
// left untouched. DelayDays is derived by the engine whenever
// ActualCompletionDate is present and cannot be set independently.
type RecordUpdate struct {
	Status                 *Status `json:"status,omitempty"`
	ActualCompletionDate   *string `json:"actual_completion_date,omitempty"`
	DelayReason            *string `json:"delay_reason,omitempty"`
	ExpectedCompletionDate *string `json:"expected_completion_date,omitempty"`
	AuditorRemarks         *string `json:"auditor_remarks,omitempty"`
	LeadershipRemarks      *string `json:"leadership_remarks,omitempty"`
	OtherObservations      *string `json:"other_observations,omitempty"`
}

// Action labels recorded in the audit trail
const (
	ActionUpdatedCompliance = "Updated Compliance"
	ActionAddedRevenue      = "Added Revenue Entry"
)
