package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/smallbiznis/rebateplan/internal/config"
	"github.com/smallbiznis/rebateplan/internal/field"
	rebatedomain "github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

type planServiceStub struct {
	view *rebatedomain.PlanView
	err  error

	refreshed struct {
		namespace string
		rows      int
	}
	edited struct {
		namespace string
		customer  string
		uid       string
		values    map[string]any
	}
	saved string
}

func (s *planServiceStub) Refresh(ctx context.Context, namespace string, rows []rebatedomain.QueryRow, hostFields []field.Field, filters map[string]any) (*rebatedomain.PlanView, error) {
	s.refreshed.namespace = namespace
	s.refreshed.rows = len(rows)
	return s.view, s.err
}

func (s *planServiceStub) ApplyEdit(ctx context.Context, namespace, customer, uid string, values map[string]any) (*rebatedomain.PlanView, error) {
	s.edited.namespace = namespace
	s.edited.customer = customer
	s.edited.uid = uid
	s.edited.values = values
	return s.view, s.err
}

func (s *planServiceStub) Save(ctx context.Context, namespace string) (*rebatedomain.PlanView, error) {
	s.saved = namespace
	return s.view, s.err
}

func (s *planServiceStub) View(ctx context.Context, namespace string) (*rebatedomain.PlanView, error) {
	return s.view, s.err
}

func setupTestServer(stub *planServiceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	s := NewServer(ServerParams{
		Gin:     r,
		Cfg:     config.Config{NamespacePrefix: "rebate_plan"},
		Log:     zap.NewNop(),
		PlanSvc: stub,
	})
	s.RegisterPlanRoutes()
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRefreshPlanEndpoint(t *testing.T) {
	stub := &planServiceStub{view: &rebatedomain.PlanView{SaveState: "unsaved"}}
	r := setupTestServer(stub)

	w := doJSON(t, r, http.MethodPost, "/v1/plans/ns1/refresh", gin.H{
		"rows": []gin.H{
			{field.HostCustomer: gin.H{"value": "A"}},
		},
		"host_fields": []gin.H{
			{"name": field.HostCustomer, "label": "Customer"},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ns1", stub.refreshed.namespace)
	assert.Equal(t, 1, stub.refreshed.rows)

	var resp rebatedomain.PlanView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unsaved", resp.SaveState)
}

func TestRefreshPlanRequiresHostFields(t *testing.T) {
	r := setupTestServer(&planServiceStub{view: &rebatedomain.PlanView{}})

	w := doJSON(t, r, http.MethodPost, "/v1/plans/ns1/refresh", gin.H{"rows": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditPlanSkuEndpoint(t *testing.T) {
	stub := &planServiceStub{view: &rebatedomain.PlanView{}}
	r := setupTestServer(stub)

	w := doJSON(t, r, http.MethodPatch, "/v1/plans/ns1/customers/A/skus/S1_00", gin.H{
		"values": gin.H{field.QtyOrAmt: 25},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A", stub.edited.customer)
	assert.Equal(t, "S1_00", stub.edited.uid)
	assert.Equal(t, float64(25), stub.edited.values[field.QtyOrAmt])
}

func TestEditPlanSkuUnknownCustomer(t *testing.T) {
	stub := &planServiceStub{err: rebatedomain.ErrCustomerUnknown}
	r := setupTestServer(stub)

	w := doJSON(t, r, http.MethodPatch, "/v1/plans/ns1/customers/Z/skus/S1_00", gin.H{
		"values": gin.H{field.QtyOrAmt: 25},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSavePlanConflict(t *testing.T) {
	stub := &planServiceStub{err: rebatedomain.ErrSaveInFlight}
	r := setupTestServer(stub)

	w := doJSON(t, r, http.MethodPost, "/v1/plans/ns1/save", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp.Error.Type)
}

func TestViewPlanNotFound(t *testing.T) {
	stub := &planServiceStub{err: rebatedomain.ErrPlanNotFound}
	r := setupTestServer(stub)

	w := doJSON(t, r, http.MethodGet, "/v1/plans/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeriveNamespaceEndpoint(t *testing.T) {
	r := setupTestServer(&planServiceStub{})

	w := doJSON(t, r, http.MethodPost, "/v1/namespaces/derive", gin.H{
		"user":      "u1",
		"dashboard": "dash",
		"element":   "table",
		"filters": []gin.H{
			{"field_label": "Region", "value": "EU"},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Namespace string         `json:"namespace"`
		Filters   map[string]any `json:"filters"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Namespace, "rebate_plan_u1_dash_table_")
	assert.Equal(t, "EU", resp.Filters["Region"])
}

func TestDeriveNamespaceValidation(t *testing.T) {
	r := setupTestServer(&planServiceStub{})

	w := doJSON(t, r, http.MethodPost, "/v1/namespaces/derive", gin.H{"user": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
