package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"daybook/internal/logger"
	"daybook/internal/models"
	"daybook/internal/pagination"
	"daybook/internal/services"
	"daybook/internal/validator"
)

const (
	testActor  = "ana@daybook.local"
	mainID     = "0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6b"
	subID      = "0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6c"
	txID       = "0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6d"
	restoredID = "0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6e"
)

// --- mock audit service ---

type auditCall struct {
	Actor, Action, ResourceType, ResourceID string
	Changes                                 map[string]interface{}
}

type mockAuditService struct {
	calls []auditCall
}

func (m *mockAuditService) Log(actor, action, resourceType, resourceID, _ string, changes map[string]interface{}) {
	m.calls = append(m.calls, auditCall{actor, action, resourceType, resourceID, changes})
}

func (m *mockAuditService) ListAuditLogs(page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	resp := pagination.NewPageResponse([]models.AuditLog{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
	logger.Init("test")
}

func injectActor(actor string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ActorKey, actor)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func assertErrorKind(t *testing.T, result map[string]interface{}, kind string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["kind"] != kind {
		t.Errorf("expected error kind %q, got %q", kind, errObj["kind"])
	}
}
