package agent

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohitkumar/flowcanvas/analytics"
	"github.com/mohitkumar/flowcanvas/config"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/stretchr/testify/require"
)

func TestAgentWiresSqliteStore(t *testing.T) {
	dir := t.TempDir()
	a, err := New(config.Config{
		StorageType:   config.STORAGE_TYPE_SQLITE,
		SqlConfig:     config.SqlStorageConfig{Dsn: filepath.Join(dir, "flows.db")},
		Lanes:         2,
		SessionTTL:    time.Minute,
		AuditInterval: time.Second,
		AnalyticsConfig: analytics.DataCollectorConfig{
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
			FileName:      filepath.Join(dir, "edits.log"),
		},
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, a.Shutdown())
	}()

	body, err := json.Marshal(map[string]any{"title": "wired"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var wf model.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))

	body, err = json.Marshal(map[string]any{"type": "start"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workflows/"+wf.Id+"/nodes", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAgentRejectsBadConfig(t *testing.T) {
	_, err := New(config.Config{StorageType: config.STORAGE_TYPE_POSTGRES})
	require.Error(t, err)
}
