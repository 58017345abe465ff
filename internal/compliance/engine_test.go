package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/audit"
	"github.com/freshlabs/compliance-dashboard/internal/config"
)

func newTestEngine(t *testing.T) (*Engine, *audit.Trail) {
	t.Helper()

	logger := zap.NewNop()
	trail := audit.NewTrail(logger)
	engine := NewEngine(config.DashboardConfig{SeedDemoData: true}, logger, trail)
	require.NoError(t, engine.Start())
	t.Cleanup(func() { engine.Stop() })

	return engine, trail
}

func testUser(role Role) User {
	return User{
		ID:          "user-1",
		Name:        "Demo Manager",
		Role:        role,
		Preferences: DefaultPreferences(),
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s Status) *Status { return &s }

func TestUpdateCompliance(t *testing.T) {
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)
	actor := testUser(RoleManager)

	t.Run("Unknown Target Is Explicit Not Found", func(t *testing.T) {
		engine, trail := newTestEngine(t)
		before := engine.Records()

		_, entry, err := engine.UpdateCompliance("no-such-id", RecordUpdate{
			Status: statusPtr(StatusCompleted),
		}, actor, now)

		assert.ErrorIs(t, err, ErrRecordNotFound)
		assert.Nil(t, entry)
		assert.Equal(t, before, engine.Records(), "state must be unchanged on not-found")
		assert.Equal(t, 0, trail.Len())
	})

	t.Run("Status Change Produces Audit Entry", func(t *testing.T) {
		engine, trail := newTestEngine(t)

		record, entry, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			Status: statusPtr(StatusCompleted),
		}, actor, now)
		require.NoError(t, err)
		require.NotNil(t, entry)

		assert.Equal(t, StatusCompleted, record.Status)
		assert.Equal(t, now, record.LastUpdated)
		assert.Equal(t, ActionUpdatedCompliance, entry.Action)
		assert.Equal(t, "comp-1", entry.TargetID)
		require.Len(t, entry.Changes, 1)
		assert.Equal(t, "status", entry.Changes[0].Field)
		assert.Equal(t, audit.String(string(StatusNotCompleted)), entry.Changes[0].OldValue)
		assert.Equal(t, audit.String(string(StatusCompleted)), entry.Changes[0].NewValue)
		assert.Equal(t, 1, trail.Len())
	})

	t.Run("No Op Update Still Advances LastUpdated", func(t *testing.T) {
		engine, trail := newTestEngine(t)

		prior, err := engine.Record("comp-1")
		require.NoError(t, err)

		record, entry, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			Status: statusPtr(prior.Status),
		}, actor, now)
		require.NoError(t, err)

		assert.Nil(t, entry, "identical values must not produce an audit entry")
		assert.Equal(t, 0, trail.Len())
		assert.Equal(t, now, record.LastUpdated, "lastUpdated advances even without a diff")
	})

	t.Run("Completion Date Derives Delay Days", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		// comp-1 (GSTR-1 Filing) is due on the 11th of every month.
		record, entry, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			Status:               statusPtr(StatusCompleted),
			ActualCompletionDate: strPtr("2024-06-15"),
		}, actor, now)
		require.NoError(t, err)
		require.NotNil(t, entry)

		assert.Equal(t, 4, record.DelayDays)

		fields := make([]string, 0, len(entry.Changes))
		for _, ch := range entry.Changes {
			fields = append(fields, ch.Field)
		}
		assert.Contains(t, fields, "delayDays")
		assert.Contains(t, fields, "actualCompletionDate")
	})

	t.Run("Early Completion Clamps Delay To Zero", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		record, _, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			ActualCompletionDate: strPtr("2024-06-10"),
		}, actor, now)
		require.NoError(t, err)
		assert.Equal(t, 0, record.DelayDays)
	})

	t.Run("Malformed Completion Date Is Explicit Error", func(t *testing.T) {
		engine, trail := newTestEngine(t)
		before, err := engine.Record("comp-1")
		require.NoError(t, err)

		_, entry, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			ActualCompletionDate: strPtr("sometime"),
		}, actor, now)

		assert.ErrorIs(t, err, ErrInvalidDate)
		assert.Nil(t, entry)
		assert.Equal(t, 0, trail.Len())

		after, err := engine.Record("comp-1")
		require.NoError(t, err)
		assert.Equal(t, before, after, "invalid date must not mutate the record")
	})

	t.Run("Diff Uses Pre Mutation Snapshot", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		_, first, err := engine.UpdateCompliance("comp-3", RecordUpdate{
			DelayReason: strPtr("Awaiting reconciliation"),
		}, actor, now)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, audit.Null(), first.Changes[0].OldValue)

		_, second, err := engine.UpdateCompliance("comp-3", RecordUpdate{
			DelayReason: strPtr("Bank holiday backlog"),
		}, actor, now.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, audit.String("Awaiting reconciliation"), second.Changes[0].OldValue)
		assert.Equal(t, audit.String("Bank holiday backlog"), second.Changes[0].NewValue)
	})

	t.Run("Audit Trail Is Newest First", func(t *testing.T) {
		engine, trail := newTestEngine(t)

		_, u1, err := engine.UpdateCompliance("comp-1", RecordUpdate{Status: statusPtr(StatusWIP)}, actor, now)
		require.NoError(t, err)
		_, u2, err := engine.UpdateCompliance("comp-3", RecordUpdate{Status: statusPtr(StatusWIP)}, actor, now.Add(time.Second))
		require.NoError(t, err)
		_, u3, err := engine.UpdateCompliance("comp-5", RecordUpdate{Status: statusPtr(StatusWIP)}, actor, now.Add(2*time.Second))
		require.NoError(t, err)

		entries := trail.Entries(audit.Filter{})
		require.Len(t, entries, 3)
		assert.Equal(t, u3.ID, entries[0].ID)
		assert.Equal(t, u2.ID, entries[1].ID)
		assert.Equal(t, u1.ID, entries[2].ID)
	})
}

func TestRemarkListener(t *testing.T) {
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)

	t.Run("Fires When New Remarks Enabled", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		listener := &recordingListener{}
		engine.SetRemarkListener(listener)

		_, _, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			LeadershipRemarks: strPtr("Escalate to finance lead"),
		}, testUser(RoleCEOCFO), now)
		require.NoError(t, err)

		assert.Equal(t, 1, listener.calls)
	})

	t.Run("Silent When Type Disabled", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		listener := &recordingListener{}
		engine.SetRemarkListener(listener)

		actor := testUser(RoleCEOCFO)
		actor.Preferences.Notifications.Types.NewRemarks = false

		_, _, err := engine.UpdateCompliance("comp-1", RecordUpdate{
			LeadershipRemarks: strPtr("Escalate to finance lead"),
		}, actor, now)
		require.NoError(t, err)

		assert.Equal(t, 0, listener.calls)
	})
}

type recordingListener struct {
	calls int
}

func (l *recordingListener) RemarkAdded(record ComplianceRecord, actor User) {
	l.calls++
}

func TestAddRevenue(t *testing.T) {
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)
	actor := testUser(RoleCEOCFO)

	t.Run("Append Produces One Audit Entry", func(t *testing.T) {
		engine, trail := newTestEngine(t)
		before := len(engine.Revenues())

		entry, err := engine.AddRevenue(RevenueRecord{
			ID:       "rev-new",
			Date:     "2024-06-18",
			Source:   "Pied Piper",
			Mode:     "Wire Transfer",
			Amount:   320000,
			Category: "SaaS",
		}, actor, now)
		require.NoError(t, err)
		require.NotNil(t, entry)

		assert.Len(t, engine.Revenues(), before+1)
		assert.Equal(t, ActionAddedRevenue, entry.Action)
		assert.Equal(t, "Pied Piper", entry.TargetName)
		require.Len(t, entry.Changes, 1)
		assert.Equal(t, "amount", entry.Changes[0].Field)
		assert.Equal(t, audit.Null(), entry.Changes[0].OldValue)
		assert.Equal(t, audit.Number(320000), entry.Changes[0].NewValue)
		assert.Equal(t, 1, trail.Len())
	})

	t.Run("Negative Amount Rejected", func(t *testing.T) {
		engine, trail := newTestEngine(t)

		_, err := engine.AddRevenue(RevenueRecord{ID: "rev-bad", Amount: -5}, actor, now)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, 0, trail.Len())
	})
}

func TestSeedData(t *testing.T) {
	engine, _ := newTestEngine(t)

	records := engine.Records()
	assert.Len(t, records, 15)
	assert.Len(t, engine.Revenues(), 5)

	for _, rec := range records {
		assert.True(t, rec.Status.Valid(), "seeded status must be one of the three states")
		assert.NotEqual(t, DueDateInvalid, ParseDueDate(rec.DueDate).Kind, "seeded due date must parse")
	}
}
