package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/artifact"
	rebatedomain "github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

// RegisterPlanRoutes mounts the planning API.
func (s *Server) RegisterPlanRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/namespaces/derive", s.deriveNamespace)

	plans := v1.Group("/plans/:namespace")
	plans.POST("/refresh", s.refreshPlan)
	plans.GET("", s.viewPlan)
	plans.PATCH("/customers/:customer/skus/:uid", s.editPlanSku)
	plans.POST("/save", s.savePlan)
}

type refreshPlanRequest struct {
	Rows       []map[string]rebatedomain.CellValue `json:"rows"`
	HostFields []field.Field                       `json:"host_fields"`
	Filters    map[string]any                      `json:"filters"`
}

func (s *Server) refreshPlan(c *gin.Context) {
	namespace := strings.TrimSpace(c.Param("namespace"))
	if namespace == "" {
		AbortWithError(c, newValidationError("namespace", "required", "namespace is required"))
		return
	}

	var req refreshPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	if len(req.HostFields) == 0 {
		AbortWithError(c, newValidationError("host_fields", "required", "host_fields is required"))
		return
	}

	rows := make([]rebatedomain.QueryRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, rebatedomain.QueryRow(row))
	}

	view, err := s.planSvc.Refresh(c.Request.Context(), namespace, rows, req.HostFields, req.Filters)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) viewPlan(c *gin.Context) {
	view, err := s.planSvc.View(c.Request.Context(), strings.TrimSpace(c.Param("namespace")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type editPlanSkuRequest struct {
	Values map[string]any `json:"values"`
}

func (s *Server) editPlanSku(c *gin.Context) {
	var req editPlanSkuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	if len(req.Values) == 0 {
		AbortWithError(c, newValidationError("values", "required", "values is required"))
		return
	}

	view, err := s.planSvc.ApplyEdit(
		c.Request.Context(),
		strings.TrimSpace(c.Param("namespace")),
		c.Param("customer"),
		c.Param("uid"),
		req.Values,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) savePlan(c *gin.Context) {
	view, err := s.planSvc.Save(c.Request.Context(), strings.TrimSpace(c.Param("namespace")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type deriveNamespaceRequest struct {
	User      string                   `json:"user"`
	Dashboard string                   `json:"dashboard"`
	Element   string                   `json:"element"`
	Filters   []artifact.AppliedFilter `json:"filters"`
}

func (s *Server) deriveNamespace(c *gin.Context) {
	var req deriveNamespaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	if strings.TrimSpace(req.User) == "" || strings.TrimSpace(req.Dashboard) == "" || strings.TrimSpace(req.Element) == "" {
		AbortWithError(c, newValidationError("request", "required", "user, dashboard and element are required"))
		return
	}

	namespace := artifact.Namespace(s.cfg.NamespacePrefix, req.User, req.Dashboard, req.Element, req.Filters)
	c.JSON(http.StatusOK, gin.H{
		"namespace": namespace,
		"filters":   artifact.FilteredObject(req.Filters),
	})
}
