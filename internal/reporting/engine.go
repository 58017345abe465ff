package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/compliance"
	"github.com/freshlabs/compliance-dashboard/internal/config"
)

// Report formats
const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Generation states tracked per report
const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Report is a generated consolidated compliance and revenue report
type Report struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	Content     []byte    `json:"content"`
	GeneratedBy string    `json:"generated_by"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Status tracks the progress of a single report generation
type Status struct {
	ReportID    string    `json:"report_id"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// FinalizedReport is a catalog entry for an approved historical report
type FinalizedReport struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Period  string `json:"period"`
	Auditor string `json:"auditor"`
	Date    string `json:"date"`
}

// Summary holds the aggregate figures printed on every report
type Summary struct {
	TotalRecords    int     `json:"total_records"`
	CompletedCount  int     `json:"completed_count"`
	CompletionRate  int     `json:"completion_rate_percent"`
	TotalRevenue    float64 `json:"total_revenue"`
	RevenueEntries  int     `json:"revenue_entries"`
}

// Engine generates reports over the compliance and revenue snapshots
type Engine struct {
	config config.ReportingConfig
	org    string
	logger *zap.Logger

	mu        sync.RWMutex
	finalized []FinalizedReport
	statuses  map[string]*Status
}

// NewEngine creates a new report engine instance
func NewEngine(cfg config.ReportingConfig, organization string, logger *zap.Logger) *Engine {
	return &Engine{
		config: cfg,
		org:    organization,
		logger: logger,
		finalized: []FinalizedReport{
			{ID: "rep-001", Title: "Monthly Compliance Review", Period: "January 2024", Auditor: "Jane Smith", Date: "2024-02-01"},
			{ID: "rep-002", Title: "Quarterly Tax Audit", Period: "Q4 2023", Auditor: "Robert Brown", Date: "2024-01-15"},
			{ID: "rep-003", Title: "Annual Revenue Consolidation", Period: "FY 2023-24", Auditor: "Jane Smith", Date: "2024-03-10"},
		},
		statuses: make(map[string]*Status),
	}
}

// ReportStatus returns the tracked generation status for a report
func (e *Engine) ReportStatus(reportID string) (*Status, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status, exists := e.statuses[reportID]
	if !exists {
		return nil, fmt.Errorf("report not found: %s", reportID)
	}

	out := *status
	return &out, nil
}

// FinalizedReports returns the approved report catalog
func (e *Engine) FinalizedReports() []FinalizedReport {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]FinalizedReport, len(e.finalized))
	copy(out, e.finalized)
	return out
}

// FormatEnabled reports whether a format is configured
func (e *Engine) FormatEnabled(format string) bool {
	for _, f := range e.config.EnabledFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// Generate builds a consolidated report in the requested format
func (e *Engine) Generate(format, generatedBy string, records []compliance.ComplianceRecord, revenues []compliance.RevenueRecord, now time.Time) (*Report, error) {
	if !e.FormatEnabled(format) {
		return nil, fmt.Errorf("report format not enabled: %s", format)
	}

	reportID := uuid.NewString()
	e.mu.Lock()
	e.statuses[reportID] = &Status{
		ReportID:  reportID,
		Status:    StatusGenerating,
		StartedAt: now,
	}
	e.mu.Unlock()

	e.updateStatus(reportID, StatusGenerating, 10.0, "")
	summary := Summarize(records, revenues)

	e.updateStatus(reportID, StatusGenerating, 30.0, "")
	var content []byte
	var err error
	switch format {
	case FormatPDF:
		content, err = e.buildPDF(summary, records, now)
	case FormatExcel:
		content, err = e.buildExcel(summary, records, revenues)
	case FormatCSV:
		content, err = e.buildCSV(records)
	case FormatJSON:
		content, err = e.buildJSON(summary, records, revenues, now)
	default:
		err = fmt.Errorf("unsupported report format: %s", format)
	}
	if err != nil {
		e.updateStatus(reportID, StatusFailed, 0.0, err.Error())
		return nil, fmt.Errorf("failed to build %s report: %w", format, err)
	}

	e.updateStatus(reportID, StatusCompleted, 100.0, "")

	report := &Report{
		ID:          reportID,
		Name:        fmt.Sprintf("Consolidated_Report_%s", now.Format("20060102_150405")),
		Format:      format,
		Content:     content,
		GeneratedBy: generatedBy,
		GeneratedAt: now,
	}

	e.logger.Info("Report generated",
		zap.String("report_id", report.ID),
		zap.String("format", format),
		zap.Int("bytes", len(content)),
	)

	return report, nil
}

func (e *Engine) updateStatus(reportID, status string, progress float64, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, exists := e.statuses[reportID]
	if !exists {
		return
	}
	s.Status = status
	s.Progress = progress
	if status == StatusCompleted || status == StatusFailed {
		s.CompletedAt = time.Now()
	}
	if status == StatusFailed {
		s.Error = message
	}
}

// Summarize computes the aggregate figures for a snapshot
func Summarize(records []compliance.ComplianceRecord, revenues []compliance.RevenueRecord) Summary {
	s := Summary{
		TotalRecords:   len(records),
		RevenueEntries: len(revenues),
	}
	for _, r := range records {
		if r.Status == compliance.StatusCompleted {
			s.CompletedCount++
		}
	}
	if s.TotalRecords > 0 {
		s.CompletionRate = s.CompletedCount * 100 / s.TotalRecords
	}
	for _, r := range revenues {
		s.TotalRevenue += r.Amount
	}
	return s
}

func (e *Engine) buildPDF(summary Summary, records []compliance.ComplianceRecord, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("%s Audit Report", e.org))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Audit Period: %s", e.config.AuditPeriod))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Date Generated: %s", now.Format("2006-01-02 15:04:05")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Compliance Completion Rate: %d%%", summary.CompletionRate))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Revenue Tracked: %.2f", summary.TotalRevenue))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Compliance Items")
	pdf.Ln(9)

	pdf.SetFont("Arial", "", 9)
	for _, rec := range records {
		pdf.Cell(0, 6, fmt.Sprintf("%s  |  due %s  |  %s  |  %s", rec.Name, rec.DueDate, rec.Frequency, rec.Status))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Engine) buildExcel(summary Summary, records []compliance.ComplianceRecord, revenues []compliance.RevenueRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const complianceSheet = "Compliance"
	index, err := f.NewSheet(complianceSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Name", "Due Date", "Frequency", "Status", "Criticality", "Delay Days", "Delay Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(complianceSheet, cell, h)
	}
	for row, rec := range records {
		values := []interface{}{rec.ID, rec.Name, rec.DueDate, string(rec.Frequency), string(rec.Status), string(rec.Criticality), rec.DelayDays, rec.DelayReason}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(complianceSheet, cell, v)
		}
	}

	const revenueSheet = "Revenue"
	if _, err := f.NewSheet(revenueSheet); err != nil {
		return nil, err
	}
	revHeaders := []string{"ID", "Date", "Source", "Mode", "Amount", "Category"}
	for i, h := range revHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(revenueSheet, cell, h)
	}
	for row, rec := range revenues {
		values := []interface{}{rec.ID, rec.Date, rec.Source, rec.Mode, rec.Amount, rec.Category}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(revenueSheet, cell, v)
		}
	}
	f.SetCellValue(revenueSheet, "H1", "Total Revenue")
	f.SetCellValue(revenueSheet, "H2", summary.TotalRevenue)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Engine) buildCSV(records []compliance.ComplianceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"id", "name", "due_date", "frequency", "status", "criticality", "delay_days", "delay_reason", "leadership_remarks"}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Name,
			rec.DueDate,
			string(rec.Frequency),
			string(rec.Status),
			string(rec.Criticality),
			fmt.Sprintf("%d", rec.DelayDays),
			rec.DelayReason,
			rec.LeadershipRemarks,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Engine) buildJSON(summary Summary, records []compliance.ComplianceRecord, revenues []compliance.RevenueRecord, now time.Time) ([]byte, error) {
	payload := map[string]interface{}{
		"organization": e.org,
		"audit_period": e.config.AuditPeriod,
		"generated_at": now,
		"summary":      summary,
		"compliances":  records,
		"revenues":     revenues,
	}
	return json.MarshalIndent(payload, "", "  ")
}
