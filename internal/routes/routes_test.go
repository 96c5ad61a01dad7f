package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"tprmgrc/docs"
	"tprmgrc/internal/config"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/repositories/sqlserver/sqlservertest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := &config.App{SqlServer: sqlservertest.New(t), RequestTimeout: 5 * time.Second}
	cfg.Wire()
	t.Cleanup(cfg.Bus.Wait)

	engine := middleware.SetupServer(cfg)
	InitiateRoutes(engine, cfg)
	return &api{t: t, engine: engine}
}

// do sends a request as actor; an empty actor sends no token
func (a *api) do(method, path, actor string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		token, err := middleware.GenerateJWT(actor, actor+"@acme.com", "manager")
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", body)
	return d
}

func idOf(t *testing.T, obj map[string]interface{}, key string) int64 {
	t.Helper()
	v, ok := obj[key].(float64)
	require.True(t, ok, "%s missing in %v", key, obj)
	return int64(v)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodGet, "/healthcheck/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, map[string]interface{}{"sqlserver": "OK"}, body["checks"])
	assert.Contains(t, body["handlers"], "retention")
	assert.Contains(t, body["handlers"], "approval_outcome")
}

func TestContractsAPI(t *testing.T) {
	a := newAPI(t)

	code, _ := a.do(http.MethodGet, "/contracts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := a.do(http.MethodPost, "/contracts", "ann", map[string]interface{}{
		"contract_number": "ACME-001",
		"contract_title":  "Master services",
	})
	require.Equal(t, http.StatusCreated, code, body)
	created := data(t, body)
	id := idOf(t, created, "contract_id")
	assert.Equal(t, "UNDER_REVIEW", created["status"])
	assert.Equal(t, "ann", created["created_by"])

	code, body = a.do(http.MethodPost, "/contracts", "ann", map[string]interface{}{
		"contract_number": "ACME-001",
		"contract_title":  "Again",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", body["error"])
	assert.Equal(t, "contract_number", body["field"])

	code, _ = a.do(http.MethodGet, fmt.Sprintf("/contracts/%d", id), "ann", nil)
	assert.Equal(t, http.StatusOK, code)
	code, body = a.do(http.MethodGet, "/contracts/9999", "ann", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["error"])
	code, _ = a.do(http.MethodGet, "/contracts/abc", "ann", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPatch, fmt.Sprintf("/contracts/%d", id), "ann", map[string]interface{}{"status": "ACTIVE"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "ILLEGAL_TRANSITION", body["error"])
	assert.Equal(t, map[string]interface{}{"from": "UNDER_REVIEW", "to": "ACTIVE"}, body["details"])

	code, body = a.do(http.MethodPatch, fmt.Sprintf("/contracts/%d", id), "ann", map[string]interface{}{"description": "hosting and support"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "hosting and support", data(t, body)["description"])

	code, body = a.do(http.MethodPost, fmt.Sprintf("/contracts/%d/terms", id), "ann", map[string]interface{}{
		"term_category": "payment",
		"term_text":     "Net 30",
	})
	require.Equal(t, http.StatusCreated, code, body)
	term := data(t, body)["term"].(map[string]interface{})
	assert.NotEmpty(t, term["term_id"])

	code, body = a.do(http.MethodGet, "/contracts?status=under_review", "ann", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["pagination"].(map[string]interface{})["total_records"])

	code, body = a.do(http.MethodPost, fmt.Sprintf("/contracts/%d/versions", id), "ann", map[string]interface{}{"version_type": "major"})
	require.Equal(t, http.StatusCreated, code, body)
	res := data(t, body)
	assert.Equal(t, float64(2), res["contract"].(map[string]interface{})["version_number"])
	assert.Equal(t, float64(1), res["copied"].(map[string]interface{})["terms"])

	code, body = a.do(http.MethodPost, fmt.Sprintf("/contracts/%d/versions", id), "ann", map[string]interface{}{"version_type": "patch"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "version_type", body["field"])

	code, _ = a.do(http.MethodGet, "/contracts/search?q=hosting", "ann", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code, "no search backend configured")
}

func TestApprovalsAPI(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/contracts", "boss", map[string]interface{}{
		"contract_number": "ACME-001",
		"contract_title":  "Master services",
	})
	require.Equal(t, http.StatusCreated, code, body)
	cid := idOf(t, data(t, body), "contract_id")

	code, body = a.do(http.MethodPost, "/approvals", "boss", map[string]interface{}{
		"object_type": "CONTRACT_CREATION",
		"object_id":   cid,
		"assignee_id": "rita",
		"due_date":    time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code, body)
	aid := idOf(t, data(t, body), "approval_id")
	actions := fmt.Sprintf("/approvals/%d/actions", aid)

	code, body = a.do(http.MethodPost, actions, "boss", map[string]interface{}{"status": "IN_PROGRESS"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["error"])

	code, body = a.do(http.MethodPost, actions, "rita", map[string]interface{}{"status": "EXPIRED"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, body)

	code, _ = a.do(http.MethodPost, actions, "rita", map[string]interface{}{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, code)
	code, body = a.do(http.MethodPost, actions, "rita", map[string]interface{}{"status": "APPROVED", "comment_text": "looks good"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "APPROVED", data(t, body)["status"])

	code, body = a.do(http.MethodGet, fmt.Sprintf("/contracts/%d", cid), "boss", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "APPROVED", data(t, body)["status"], "the approval moved the contract")

	code, body = a.do(http.MethodPost, fmt.Sprintf("/contracts/%d/execute", cid), "boss", nil)
	require.Equal(t, http.StatusOK, code, body)

	code, body = a.do(http.MethodGet, "/approvals/assigned", "rita", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
	code, body = a.do(http.MethodGet, "/approvals/assigned", "boss", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 0)

	code, body = a.do(http.MethodGet, "/approvals/stats?assigner_id=boss", "boss", nil)
	require.Equal(t, http.StatusOK, code)
	stats := data(t, body)
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, map[string]interface{}{"APPROVED": float64(1)}, stats["by_status"])

	code, _ = a.do(http.MethodGet, "/approvals?sla=sometimes", "boss", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestInvitationTrackingAPI(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/rfps", "ann", map[string]interface{}{"rfp_number": "RFP-1", "title": "Cloud hosting"})
	require.Equal(t, http.StatusCreated, code, body)
	rfpID := idOf(t, data(t, body), "rfp_id")

	code, body = a.do(http.MethodPost, fmt.Sprintf("/rfps/%d/invitations", rfpID), "ann", map[string]interface{}{"vendor_email": "sales@acme.io"})
	require.Equal(t, http.StatusCreated, code, body)
	inv := data(t, body)
	invID := idOf(t, inv, "invitation_id")
	token := inv["unique_token"].(string)

	code, body = a.do(http.MethodPatch, fmt.Sprintf("/rfps/%d/invitations/%d/status", rfpID, invID), "ann", map[string]interface{}{"status": "SENT"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = a.do(http.MethodGet, fmt.Sprintf("/rfp/%d/respond?token=%s", rfpID, token), "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "OPENED", data(t, body)["status"])
	assert.NotContains(t, data(t, body), "unique_token")

	code, body = a.do(http.MethodGet, fmt.Sprintf("/rfp/%d/invitations/%d/acknowledge", rfpID, invID), "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "ACKNOWLEDGED", data(t, body)["status"])

	code, body = a.do(http.MethodGet, fmt.Sprintf("/rfp/%d/invitations/%d/decline", rfpID, invID), "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "ILLEGAL_TRANSITION", body["error"])

	code, _ = a.do(http.MethodGet, fmt.Sprintf("/rfp/%d/respond", rfpID), "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRequestBinding(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/vendors", "ann", map[string]interface{}{"vendor_code": "ACME"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION", body["error"])
	assert.Equal(t, "legal_name", body["field"])

	code, body = a.do(http.MethodPost, "/vendors", "ann", map[string]interface{}{"vendor_code": "ACME", "legal_name": "Acme Ltd"})
	require.Equal(t, http.StatusCreated, code, body)
	vendorID := idOf(t, data(t, body), "vendor_id")

	code, body = a.do(http.MethodPost, fmt.Sprintf("/vendors/%d/contacts", vendorID), "ann", map[string]interface{}{"email": "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "email", body["field"])

	code, body = a.do(http.MethodPost, "/contracts", "ann", map[string]interface{}{
		"contract_number": "ACME-001",
		"contract_title":  "Master services",
		"contract_value":  "lots",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "contract_value", body["field"])

	code, body = a.do(http.MethodPost, "/contracts", "ann", map[string]interface{}{
		"contract_number": "ACME-001",
		"contract_title":  "Master services",
		"contract_value":  -10,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "contract_value", body["field"])
}

func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	a := newAPI(t)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	param := regexp.MustCompile(`:(\w+)`)
	for _, r := range a.engine.Routes() {
		if strings.HasPrefix(r.Path, "/swagger") {
			continue
		}
		path := param.ReplaceAllString(r.Path, "{$1}")
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, "%s is not documented", path) {
			continue
		}
		assert.Contains(t, ops, strings.ToLower(r.Method), "%s %s is not documented", r.Method, path)
	}
}
