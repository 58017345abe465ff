package compliance

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/audit"
	"github.com/freshlabs/compliance-dashboard/internal/config"
)

// ErrRecordNotFound is returned when an update targets a record id that
// does not exist. State is left unchanged.
var ErrRecordNotFound = errors.New("compliance record not found")

// ErrInvalidAmount is returned when a revenue entry carries a negative amount
var ErrInvalidAmount = errors.New("revenue amount must be non-negative")

// RemarkListener is the fan-out seam invoked when leadership remarks are
// added and the acting user has the new-remarks notification type enabled.
// A future multi-user notification path attaches here.
type RemarkListener interface {
	RemarkAdded(record ComplianceRecord, actor User)
}

// Engine owns the in-memory compliance and revenue stores and routes every
// mutation through the audit trail. A single signed-in actor drives
// mutations; the RWMutex guards against concurrent HTTP readers.
type Engine struct {
	config  config.DashboardConfig
	logger  *zap.Logger
	trail   *audit.Trail
	remarks RemarkListener

	mu       sync.RWMutex
	records  []*ComplianceRecord
	revenues []*RevenueRecord
	running  bool
}

// NewEngine creates a new compliance engine instance
func NewEngine(cfg config.DashboardConfig, logger *zap.Logger, trail *audit.Trail) *Engine {
	return &Engine{
		config:   cfg,
		logger:   logger,
		trail:    trail,
		records:  make([]*ComplianceRecord, 0),
		revenues: make([]*RevenueRecord, 0),
	}
}

// SetRemarkListener attaches the leadership-remark fan-out hook
func (e *Engine) SetRemarkListener(l RemarkListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remarks = l
}

// Start starts the engine and seeds demo data when configured
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("compliance engine is already running")
	}

	e.logger.Info("Starting compliance engine")

	if e.config.SeedDemoData && len(e.records) == 0 {
		e.records = seedComplianceRecords()
		e.revenues = seedRevenueRecords()
		e.logger.Info("Seeded demo data",
			zap.Int("compliance_records", len(e.records)),
			zap.Int("revenue_records", len(e.revenues)),
		)
	}

	e.running = true
	e.logger.Info("Compliance engine started successfully")
	return nil
}

// Stop stops the engine
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}

	e.logger.Info("Stopping compliance engine")
	e.running = false
	return nil
}

// Records returns a snapshot of all compliance records in seed order
func (e *Engine) Records() []ComplianceRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]ComplianceRecord, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, *r)
	}
	return out
}

// Record returns a single compliance record by id
func (e *Engine) Record(id string) (ComplianceRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, r := range e.records {
		if r.ID == id {
			return *r, nil
		}
	}
	return ComplianceRecord{}, ErrRecordNotFound
}

// Revenues returns a snapshot of all revenue records in insertion order
func (e *Engine) Revenues() []RevenueRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]RevenueRecord, 0, len(e.revenues))
	for _, r := range e.revenues {
		out = append(out, *r)
	}
	return out
}

// UpdateCompliance applies a partial update to the target record. The diff
// is computed against the pre-mutation snapshot; an audit entry is recorded
// iff at least one field actually changed. LastUpdated always advances,
// even when the update is a semantic no-op.
func (e *Engine) UpdateCompliance(id string, upd RecordUpdate, actor User, now time.Time) (ComplianceRecord, *audit.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var target *ComplianceRecord
	for _, r := range e.records {
		if r.ID == id {
			target = r
			break
		}
	}
	if target == nil {
		e.logger.Warn("Update targeted unknown record", zap.String("record_id", id))
		return ComplianceRecord{}, nil, ErrRecordNotFound
	}

	// DelayDays is derived, never set independently.
	var derivedDelay *int
	if upd.ActualCompletionDate != nil {
		days, err := DelayDays(target.DueDate, *upd.ActualCompletionDate)
		if err != nil {
			return ComplianceRecord{}, nil, fmt.Errorf("actual completion date %q: %w", *upd.ActualCompletionDate, err)
		}
		derivedDelay = &days
	}

	prior := *target
	changes := diffRecord(prior, upd, derivedDelay)

	applyUpdate(target, upd, derivedDelay)
	target.LastUpdated = now

	var entry *audit.Entry
	if len(changes) > 0 {
		entry = audit.NewEntry(now, actor.ID, actor.Name, string(actor.Role),
			ActionUpdatedCompliance, target.ID, target.Name, changes)
		e.trail.Record(entry)

		if upd.LeadershipRemarks != nil && e.remarks != nil &&
			actor.Preferences.Notifications.Types.NewRemarks {
			e.remarks.RemarkAdded(*target, actor)
		}
	}

	e.logger.Info("Compliance record updated",
		zap.String("record_id", target.ID),
		zap.String("record_name", target.Name),
		zap.Int("changed_fields", len(changes)),
	)

	return *target, entry, nil
}

// AddRevenue appends a revenue record; revenue records are immutable once
// created. Exactly one audit entry is produced per append.
func (e *Engine) AddRevenue(rec RevenueRecord, actor User, now time.Time) (*audit.Entry, error) {
	if rec.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stored := rec
	e.revenues = append(e.revenues, &stored)

	entry := audit.NewEntry(now, actor.ID, actor.Name, string(actor.Role),
		ActionAddedRevenue, rec.ID, rec.Source, []audit.FieldChange{
			{Field: "amount", OldValue: audit.Null(), NewValue: audit.Number(rec.Amount)},
		})
	e.trail.Record(entry)

	e.logger.Info("Revenue entry added",
		zap.String("record_id", rec.ID),
		zap.String("source", rec.Source),
		zap.Float64("amount", rec.Amount),
	)

	return entry, nil
}

// PendingCount returns the number of records that are not completed
func (e *Engine) PendingCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, r := range e.records {
		if r.Status != StatusCompleted {
			count++
		}
	}
	return count
}

// diffRecord collects field-level changes in declaration order. Optional
// string fields diff as null when empty so the serialized trail matches
// the tagged union contract.
func diffRecord(prior ComplianceRecord, upd RecordUpdate, derivedDelay *int) []audit.FieldChange {
	changes := make([]audit.FieldChange, 0)

	appendString := func(field, old string, next *string) {
		if next != nil && *next != old {
			changes = append(changes, audit.FieldChange{
				Field:    field,
				OldValue: optionalString(old),
				NewValue: optionalString(*next),
			})
		}
	}

	if upd.Status != nil && *upd.Status != prior.Status {
		changes = append(changes, audit.FieldChange{
			Field:    "status",
			OldValue: audit.String(string(prior.Status)),
			NewValue: audit.String(string(*upd.Status)),
		})
	}
	appendString("actualCompletionDate", prior.ActualCompletionDate, upd.ActualCompletionDate)
	if derivedDelay != nil && *derivedDelay != prior.DelayDays {
		changes = append(changes, audit.FieldChange{
			Field:    "delayDays",
			OldValue: audit.Number(float64(prior.DelayDays)),
			NewValue: audit.Number(float64(*derivedDelay)),
		})
	}
	appendString("delayReason", prior.DelayReason, upd.DelayReason)
	appendString("expectedCompletionDate", prior.ExpectedCompletionDate, upd.ExpectedCompletionDate)
	appendString("auditorRemarks", prior.AuditorRemarks, upd.AuditorRemarks)
	appendString("leadershipRemarks", prior.LeadershipRemarks, upd.LeadershipRemarks)
	appendString("otherObservations", prior.OtherObservations, upd.OtherObservations)

	return changes
}

func applyUpdate(target *ComplianceRecord, upd RecordUpdate, derivedDelay *int) {
	if upd.Status != nil {
		target.Status = *upd.Status
	}
	if upd.ActualCompletionDate != nil {
		target.ActualCompletionDate = *upd.ActualCompletionDate
	}
	if derivedDelay != nil {
		target.DelayDays = *derivedDelay
	}
	if upd.DelayReason != nil {
		target.DelayReason = *upd.DelayReason
	}
	if upd.ExpectedCompletionDate != nil {
		target.ExpectedCompletionDate = *upd.ExpectedCompletionDate
	}
	if upd.AuditorRemarks != nil {
		target.AuditorRemarks = *upd.AuditorRemarks
	}
	if upd.LeadershipRemarks != nil {
		target.LeadershipRemarks = *upd.LeadershipRemarks
	}
	if upd.OtherObservations != nil {
		target.OtherObservations = *upd.OtherObservations
	}
}

func optionalString(s string) audit.FieldValue {
	if s == "" {
		return audit.Null()
	}
	return audit.String(s)
}
