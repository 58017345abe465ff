package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/audit"
	"github.com/freshlabs/compliance-dashboard/internal/auth"
	"github.com/freshlabs/compliance-dashboard/internal/compliance"
	"github.com/freshlabs/compliance-dashboard/internal/config"
	"github.com/freshlabs/compliance-dashboard/internal/insights"
	"github.com/freshlabs/compliance-dashboard/internal/metrics"
	"github.com/freshlabs/compliance-dashboard/internal/notification"
	"github.com/freshlabs/compliance-dashboard/internal/reporting"
)

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	config        config.DashboardConfig
	engine        *compliance.Engine
	trail         *audit.Trail
	notifications *notification.Manager
	reports       *reporting.Engine
	insights      *insights.Client
	tokens        *auth.Manager
	collector     *metrics.Collector
	logger        *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*compliance.User
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	cfg config.DashboardConfig,
	engine *compliance.Engine,
	trail *audit.Trail,
	notifications *notification.Manager,
	reports *reporting.Engine,
	insightClient *insights.Client,
	tokens *auth.Manager,
	collector *metrics.Collector,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		config:        cfg,
		engine:        engine,
		trail:         trail,
		notifications: notifications,
		reports:       reports,
		insights:      insightClient,
		tokens:        tokens,
		collector:     collector,
		logger:        logger,
		sessions:      make(map[string]*compliance.User),
	}
}

// RegisterRoutes registers all dashboard routes
func (h *DashboardHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")

	api.POST("/auth/login", h.Login)
	api.GET("/health", h.HealthCheck)

	authed := api.Group("")
	authed.Use(h.authMiddleware())

	authed.POST("/auth/logout", h.Logout)

	authed.GET("/compliances", h.GetCompliances)
	authed.GET("/compliances/:record_id", h.GetCompliance)
	authed.PUT("/compliances/:record_id", h.UpdateCompliance)

	authed.GET("/revenues", h.GetRevenues)
	authed.POST("/revenues", h.AddRevenue)

	authed.GET("/audit/logs", h.GetAuditLogs)
	authed.GET("/audit/statistics", h.GetAuditStatistics)

	authed.GET("/notifications", h.GetNotifications)
	authed.POST("/notifications/:notification_id/read", h.MarkNotificationRead)

	authed.GET("/preferences", h.GetPreferences)
	authed.PUT("/preferences", h.UpdatePreferences)

	authed.GET("/reports/finalized", h.GetFinalizedReports)
	authed.POST("/reports/generate", h.GenerateReport)
	authed.GET("/reports/:report_id/status", h.GetReportStatus)

	authed.GET("/insights", h.GetInsights)
}

// Login opens a session for a role and issues a token. Reminders are
// generated immediately on login.
func (h *DashboardHandler) Login(c *gin.Context) {
	var request struct {
		Role string `json:"role" binding:"required"`
		Name string `json:"name"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := compliance.Role(request.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown role: %s", request.Role)})
		return
	}

	name := request.Name
	if name == "" {
		name = "Demo " + strings.Split(request.Role, " ")[0]
	}

	user := &compliance.User{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       strings.ToLower(strings.ReplaceAll(request.Role, " ", "")) + "@freshlabs.com",
		Role:        role,
		Preferences: compliance.DefaultPreferences(),
	}

	now := time.Now()
	token, err := h.tokens.IssueToken(*user, now)
	if err != nil {
		h.logger.Error("Failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open session"})
		return
	}

	h.mu.Lock()
	h.sessions[user.ID] = user
	sessionCount := len(h.sessions)
	h.mu.Unlock()
	h.collector.SetActiveSessions(sessionCount)

	reminders := h.notifications.Regenerate(*user, h.engine.Records(), now)
	for _, n := range reminders {
		h.collector.RecordReminder(string(n.Type))
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"user":          user,
		"notifications": reminders,
		"pending_count": h.engine.PendingCount(),
	})
}

// Logout closes the session and drops its notification list
func (h *DashboardHandler) Logout(c *gin.Context) {
	user := h.currentUser(c)

	h.mu.Lock()
	delete(h.sessions, user.ID)
	sessionCount := len(h.sessions)
	h.mu.Unlock()
	h.collector.SetActiveSessions(sessionCount)

	h.notifications.Clear(user.ID)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *DashboardHandler) GetCompliances(c *gin.Context) {
	records := h.engine.Records()
	c.JSON(http.StatusOK, gin.H{
		"compliances": records,
		"total":       len(records),
	})
}

func (h *DashboardHandler) GetCompliance(c *gin.Context) {
	record, err := h.engine.Record(c.Param("record_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Compliance record not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateCompliance applies a partial update and returns the new record
// state plus the audit entry when one was produced.
func (h *DashboardHandler) UpdateCompliance(c *gin.Context) {
	user := h.currentUser(c)

	var update compliance.RecordUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if update.Status != nil && !update.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid status: %s", *update.Status)})
		return
	}

	if update.LeadershipRemarks != nil && !user.Role.CanEditLeadershipRemarks() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Leadership remarks require CEO/CFO or Manager role"})
		return
	}

	record, entry, err := h.engine.UpdateCompliance(c.Param("record_id"), update, *user, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, compliance.ErrRecordNotFound):
			h.collector.RecordComplianceUpdate("not_found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Compliance record not found"})
		case errors.Is(err, compliance.ErrInvalidDate):
			h.collector.RecordComplianceUpdate("invalid_date")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to update compliance record", zap.Error(err))
			h.collector.RecordComplianceUpdate("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update compliance record"})
		}
		return
	}

	h.collector.RecordComplianceUpdate("success")
	if entry != nil {
		h.collector.RecordAuditEntry(entry.Action)
	}

	c.JSON(http.StatusOK, gin.H{
		"compliance":  record,
		"audit_entry": entry,
		"message":     fmt.Sprintf("Updated: %s", record.Name),
	})
}

func (h *DashboardHandler) GetRevenues(c *gin.Context) {
	revenues := h.engine.Revenues()
	var total float64
	for _, r := range revenues {
		total += r.Amount
	}
	c.JSON(http.StatusOK, gin.H{
		"revenues": revenues,
		"total":    total,
	})
}

func (h *DashboardHandler) AddRevenue(c *gin.Context) {
	user := h.currentUser(c)

	if !user.Role.CanRecordRevenue() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Recording revenue requires Auditor role"})
		return
	}

	var request struct {
		Date     string  `json:"date" binding:"required"`
		Source   string  `json:"source" binding:"required"`
		Mode     string  `json:"mode" binding:"required"`
		Amount   float64 `json:"amount" binding:"min=0"`
		Category string  `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record := compliance.RevenueRecord{
		ID:       uuid.NewString(),
		Date:     request.Date,
		Source:   request.Source,
		Mode:     request.Mode,
		Amount:   request.Amount,
		Category: request.Category,
	}

	entry, err := h.engine.AddRevenue(record, *user, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.collector.RecordRevenueEntry()
	h.collector.RecordAuditEntry(entry.Action)

	c.JSON(http.StatusCreated, gin.H{
		"revenue":     record,
		"audit_entry": entry,
		"message":     fmt.Sprintf("Added %.2f from %s", record.Amount, record.Source),
	})
}

// GetAuditLogs returns filtered audit entries. Page size defaults to the
// configured audit query limit, which also caps client-supplied values.
func (h *DashboardHandler) GetAuditLogs(c *gin.Context) {
	var filter audit.Filter
	filter.UserID = c.Query("user_id")
	filter.Action = c.Query("action")
	filter.TargetID = c.Query("target_id")

	limit := h.config.AuditQueryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit: %s", raw)})
			return
		}
		if limit == 0 || n < limit {
			limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid offset: %s", raw)})
			return
		}
		filter.Offset = n
	}
	filter.Limit = limit

	entries := h.trail.Entries(filter)
	c.JSON(http.StatusOK, gin.H{
		"logs":   entries,
		"total":  h.trail.Len(),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *DashboardHandler) GetAuditStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.trail.Stats())
}

func (h *DashboardHandler) GetNotifications(c *gin.Context) {
	user := h.currentUser(c)
	list := h.notifications.Notifications(user.ID)
	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"total":         len(list),
	})
}

func (h *DashboardHandler) MarkNotificationRead(c *gin.Context) {
	user := h.currentUser(c)
	id := c.Param("notification_id")

	if !h.notifications.MarkRead(user.ID, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	h.collector.RecordNotificationRead()
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *DashboardHandler) GetPreferences(c *gin.Context) {
	user := h.currentUser(c)
	c.JSON(http.StatusOK, user.Preferences)
}

// UpdatePreferences replaces the session preferences and regenerates the
// reminder list, since channel and type toggles gate it.
func (h *DashboardHandler) UpdatePreferences(c *gin.Context) {
	user := h.currentUser(c)

	var prefs compliance.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	if session, ok := h.sessions[user.ID]; ok {
		session.Preferences = prefs
	}
	h.mu.Unlock()
	user.Preferences = prefs

	reminders := h.notifications.Regenerate(*user, h.engine.Records(), time.Now())

	c.JSON(http.StatusOK, gin.H{
		"preferences":   prefs,
		"notifications": reminders,
		"message":       "Dashboard preferences updated",
	})
}

func (h *DashboardHandler) GetFinalizedReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": h.reports.FinalizedReports()})
}

func (h *DashboardHandler) GenerateReport(c *gin.Context) {
	user := h.currentUser(c)

	var request struct {
		Format string `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Generate(request.Format, user.Name, h.engine.Records(), h.engine.Revenues(), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.collector.RecordReport(report.Format)

	c.Header("X-Report-ID", report.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", report.Name, extensionFor(report.Format)))
	c.Data(http.StatusOK, contentTypeFor(report.Format), report.Content)
}

// GetReportStatus returns the generation status of a previously requested
// report.
func (h *DashboardHandler) GetReportStatus(c *gin.Context) {
	status, err := h.reports.ReportStatus(c.Param("report_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *DashboardHandler) GetInsights(c *gin.Context) {
	pending := make([]compliance.ComplianceRecord, 0)
	for _, rec := range h.engine.Records() {
		if rec.Status != compliance.StatusCompleted {
			pending = append(pending, rec)
		}
	}

	summary := h.insights.Summarize(c.Request.Context(), pending)
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"enabled": h.insights.Enabled(),
	})
}

func (h *DashboardHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// RefreshReminders regenerates reminder lists for every active session.
// Called from the cron schedule.
func (h *DashboardHandler) RefreshReminders(now time.Time) {
	h.mu.RLock()
	users := make([]compliance.User, 0, len(h.sessions))
	for _, u := range h.sessions {
		users = append(users, *u)
	}
	h.mu.RUnlock()

	records := h.engine.Records()
	for _, u := range users {
		h.notifications.Regenerate(u, records, now)
	}

	if len(users) > 0 {
		h.logger.Info("Scheduled reminder refresh completed", zap.Int("sessions", len(users)))
	}
}

func (h *DashboardHandler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := h.tokens.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session token"})
			return
		}

		h.mu.RLock()
		user, ok := h.sessions[claims.Subject]
		h.mu.RUnlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// currentUser returns a copy of the session user. Session structs are
// mutated under h.mu by UpdatePreferences, so handlers never read the
// shared pointer directly.
func (h *DashboardHandler) currentUser(c *gin.Context) *compliance.User {
	session, _ := c.MustGet("user").(*compliance.User)
	h.mu.RLock()
	user := *session
	h.mu.RUnlock()
	return &user
}

func extensionFor(format string) string {
	switch format {
	case reporting.FormatExcel:
		return "xlsx"
	default:
		return format
	}
}

func contentTypeFor(format string) string {
	switch format {
	case reporting.FormatPDF:
		return "application/pdf"
	case reporting.FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case reporting.FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}
