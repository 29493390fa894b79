package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "system")
	defer cleanup()

	h := NewSystemHandlers(zerolog.Nop(), db, SystemFeatures{CacheEnabled: true})

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.True(t, response.CacheEnabled)
	assert.False(t, response.ArchiveEnabled)
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
	assert.Positive(t, response.Goroutines)
	require.NotNil(t, response.Database)
	assert.Equal(t, "sqlite", response.Database.Driver)
	assert.Positive(t, response.Database.PageSize)
}

func TestSystemHandlers_NoDatabase(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), nil, SystemFeatures{ArchiveEnabled: true})

	response := h.GetSystemStatusSnapshot()
	assert.Equal(t, "healthy", response.Status)
	assert.Nil(t, response.Database)
	assert.True(t, response.ArchiveEnabled)
}
