package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ventari/internal/core/id"
	"ventari/internal/infrastructure/http/v1/middleware"
	"ventari/internal/infrastructure/storage/postgres"
)

type fakeAuditReader struct {
	entityID id.ID
	limit    int
	entries  []postgres.AuditEntry
}

func (f *fakeAuditReader) History(ctx context.Context, entityID id.ID, limit int) ([]postgres.AuditEntry, error) {
	f.entityID = entityID
	f.limit = limit
	return f.entries, nil
}

func newAuditRouter(reader AuditReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())

	h := NewAuditHandler(NewBaseHandler(), reader)
	h.RegisterRoutes(router.Group("/audit"), func(c *gin.Context) { c.Next() })
	return router
}

func TestAuditHistory(t *testing.T) {
	entityID := id.MustParse("0190a2c3-0000-7000-8000-000000000001")
	reader := &fakeAuditReader{entries: []postgres.AuditEntry{
		{
			ID:        id.New(),
			Action:    "stock.adjust",
			EntityID:  entityID,
			UserID:    "someone",
			Payload:   json.RawMessage(`{"reason":"damaged"}`),
			CreatedAt: time.Now().UTC(),
		},
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audit/"+entityID.String()+"?limit=5", nil)
	newAuditRouter(reader).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entityID, reader.entityID)
	assert.Equal(t, 5, reader.limit)

	var body struct {
		Items      []map[string]any `json:"items"`
		TotalCount int64            `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "stock.adjust", body.Items[0]["action"])
	assert.Equal(t, entityID.String(), body.Items[0]["entityId"])
	assert.EqualValues(t, 1, body.TotalCount)
}

func TestAuditHistoryBadEntityID(t *testing.T) {
	reader := &fakeAuditReader{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audit/not-a-uuid", nil)
	newAuditRouter(reader).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHistoryClampsLimit(t *testing.T) {
	reader := &fakeAuditReader{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audit/0190a2c3-0000-7000-8000-000000000001?limit=100000", nil)
	newAuditRouter(reader).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultAuditLimit, reader.limit)
}
