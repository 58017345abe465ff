package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	trail := audit.NewTrail(logger)
	dashCfg := config.DashboardConfig{
		SeedDemoData:    true,
		Organization:    "FreshLabs Enterprise",
		AuditQueryLimit: 100,
	}
	engine := compliance.NewEngine(dashCfg, logger, trail)
	require.NoError(t, engine.Start())
	t.Cleanup(func() { engine.Stop() })

	notifier := notification.NewManager(logger)
	engine.SetRemarkListener(notifier)

	reportEngine := reporting.NewEngine(config.ReportingConfig{
		EnabledFormats: []string{"pdf", "csv", "json"},
		AuditPeriod:    "Q1 - 2024",
	}, "FreshLabs Enterprise", logger)

	insightClient := insights.NewClient(insights.Config{}, logger)
	tokens := auth.NewManager("test-secret", time.Hour)

	handler := NewDashboardHandler(dashCfg, engine, trail, notifier, reportEngine, insightClient, tokens, metrics.NewCollector(), logger)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, role string) (string, map[string]interface{}) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{"role": role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token, resp
}

func TestLogin(t *testing.T) {
	router := newTestRouter(t)

	t.Run("Valid Role Opens Session", func(t *testing.T) {
		_, resp := login(t, router, "Manager")

		user := resp["user"].(map[string]interface{})
		assert.Equal(t, "Manager", user["role"])
		assert.Equal(t, "Demo Manager", user["name"])
		assert.NotNil(t, resp["notifications"], "reminders are generated on login")
	})

	t.Run("Unknown Role Rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{"role": "Intern"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing Role Rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthGate(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/compliances", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/compliances", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComplianceEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Manager")

	t.Run("List", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/compliances", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Compliances []compliance.ComplianceRecord `json:"compliances"`
			Total       int                           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 15, resp.Total)
	})

	t.Run("Update Status", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-1", token, gin.H{
			"status": "Completed",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Compliance compliance.ComplianceRecord `json:"compliance"`
			AuditEntry *audit.Entry                `json:"audit_entry"`
			Message    string                      `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, compliance.StatusCompleted, resp.Compliance.Status)
		require.NotNil(t, resp.AuditEntry)
		assert.Equal(t, "Updated Compliance", resp.AuditEntry.Action)
		assert.Equal(t, fmt.Sprintf("Updated: %s", resp.Compliance.Name), resp.Message)
	})

	t.Run("Unknown Record Is 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/compliances/ghost", token, gin.H{"status": "Completed"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Invalid Status Is 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-1", token, gin.H{"status": "Paused"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed Completion Date Is 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-1", token, gin.H{
			"actual_completion_date": "whenever",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Auditor Cannot Set Leadership Remarks", func(t *testing.T) {
		auditorToken, _ := login(t, router, "Auditor")
		w := doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-1", auditorToken, gin.H{
			"leadership_remarks": "Needs review",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRevenueEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Auditor")

	t.Run("Append", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/revenues", token, gin.H{
			"date":     "2024-06-18",
			"source":   "Pied Piper",
			"mode":     "Wire Transfer",
			"amount":   320000,
			"category": "SaaS",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Revenue    compliance.RevenueRecord `json:"revenue"`
			AuditEntry *audit.Entry             `json:"audit_entry"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Revenue.ID)
		require.NotNil(t, resp.AuditEntry)
		assert.Equal(t, "Added Revenue Entry", resp.AuditEntry.Action)
	})

	t.Run("List Includes Total", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/revenues", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Revenues []compliance.RevenueRecord `json:"revenues"`
			Total    float64                    `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Revenues, 6)
		assert.Greater(t, resp.Total, float64(0))
	})

	t.Run("Missing Fields Rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/revenues", token, gin.H{"amount": 100})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Only Auditor May Record", func(t *testing.T) {
		for _, role := range []string{"CEO / CFO", "Manager"} {
			otherToken, _ := login(t, router, role)
			w := doJSON(t, router, http.MethodPost, "/api/v1/revenues", otherToken, gin.H{
				"date":     "2024-06-20",
				"source":   "Hooli",
				"mode":     "Cheque",
				"amount":   1000,
				"category": "Consulting",
			})
			assert.Equal(t, http.StatusForbidden, w.Code, "role %s must not record revenue", role)
		}
	})
}

func TestAuditEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Manager")

	doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-1", token, gin.H{"status": "Work In Progress"})
	doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-3", token, gin.H{"status": "Completed"})

	t.Run("Logs Newest First", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/audit/logs", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Logs  []audit.Entry `json:"logs"`
			Total int           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 2, resp.Total)
		assert.Equal(t, "comp-3", resp.Logs[0].TargetID)
		assert.Equal(t, "comp-1", resp.Logs[1].TargetID)
	})

	t.Run("Limit And Offset Page Through Logs", func(t *testing.T) {
		var resp struct {
			Logs  []audit.Entry `json:"logs"`
			Total int           `json:"total"`
		}

		w := doJSON(t, router, http.MethodGet, "/api/v1/audit/logs?limit=1", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Logs, 1)
		assert.Equal(t, "comp-3", resp.Logs[0].TargetID)
		assert.Equal(t, 2, resp.Total, "total reports all recorded entries, not the page")

		w = doJSON(t, router, http.MethodGet, "/api/v1/audit/logs?limit=1&offset=1", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Logs, 1)
		assert.Equal(t, "comp-1", resp.Logs[0].TargetID)
	})

	t.Run("Invalid Paging Params Rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/audit/logs?limit=zero", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/audit/logs?offset=-1", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Configured Limit Caps Page Size", func(t *testing.T) {
		statuses := []string{"Work In Progress", "Completed"}
		for i := 0; i < 120; i++ {
			w := doJSON(t, router, http.MethodPut, "/api/v1/compliances/comp-5", token, gin.H{
				"status": statuses[i%2],
			})
			require.Equal(t, http.StatusOK, w.Code)
		}

		var resp struct {
			Logs  []audit.Entry `json:"logs"`
			Total int           `json:"total"`
			Limit int           `json:"limit"`
		}

		w := doJSON(t, router, http.MethodGet, "/api/v1/audit/logs", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Logs, 100, "default page is the configured limit")
		assert.Equal(t, 122, resp.Total)

		w = doJSON(t, router, http.MethodGet, "/api/v1/audit/logs?limit=500", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Logs, 100, "requested limit is capped by configuration")
		assert.Equal(t, 100, resp.Limit)
	})

	t.Run("Statistics", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/audit/statistics", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats audit.Statistics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.TotalEntries)
		assert.Equal(t, 2, stats.ActionCounts["Updated Compliance"])
	})
}

func TestNotificationEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Manager")

	w := doJSON(t, router, http.MethodGet, "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Notifications []notification.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	if len(resp.Notifications) > 0 {
		id := resp.Notifications[0].ID
		w = doJSON(t, router, http.MethodPost, "/api/v1/notifications/"+id+"/read", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/notifications", token, nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Notifications[0].Read)
	}

	w = doJSON(t, router, http.MethodPost, "/api/v1/notifications/missing/read", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreferenceEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Manager")

	t.Run("Disabling In App Channel Empties Reminders", func(t *testing.T) {
		prefs := compliance.DefaultPreferences()
		prefs.Notifications.Channels.InApp = false

		w := doJSON(t, router, http.MethodPut, "/api/v1/preferences", token, prefs)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Notifications []notification.Notification `json:"notifications"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Notifications)

		w = doJSON(t, router, http.MethodGet, "/api/v1/notifications", token, nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Notifications)
	})

	t.Run("Get Reflects Update", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/preferences", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var prefs compliance.UserPreferences
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
		assert.False(t, prefs.Notifications.Channels.InApp)
	})
}

func TestPreferenceConcurrentAccess(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Manager")

	prefs := compliance.DefaultPreferences()
	prefs.Notifications.Channels.InApp = false

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w := doJSON(t, router, http.MethodPut, "/api/v1/preferences", token, prefs)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
		go func() {
			defer wg.Done()
			w := doJSON(t, router, http.MethodGet, "/api/v1/preferences", token, nil)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
}

func TestReportEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "Auditor")

	t.Run("Finalized Catalog", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/reports/finalized", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Monthly Compliance Review")
	})

	t.Run("Generate CSV", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/reports/generate", token, gin.H{"format": "csv"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	})

	t.Run("Disabled Format Rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/reports/generate", token, gin.H{"format": "excel"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Generation Status Is Tracked", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/reports/generate", token, gin.H{"format": "json"})
		require.Equal(t, http.StatusOK, w.Code)

		reportID := w.Header().Get("X-Report-ID")
		require.NotEmpty(t, reportID)

		w = doJSON(t, router, http.MethodGet, "/api/v1/reports/"+reportID+"/status", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status reporting.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, reporting.StatusCompleted, status.Status)
		assert.Equal(t, 100.0, status.Progress)
		assert.False(t, status.CompletedAt.IsZero())
	})

	t.Run("Unknown Report Status Is 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/reports/ghost/status", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInsightsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router, "CEO / CFO")

	w := doJSON(t, router, http.MethodGet, "/api/v1/insights", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Summary []string `json:"summary"`
		Enabled bool     `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Enabled)
	require.Len(t, resp.Summary, 1, "degraded mode reports a single explanatory message")
	assert.Contains(t, resp.Summary[0], "not configured")
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
