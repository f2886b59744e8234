package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	reportapp "github.com/petshop/erp/internal/application/report"
	"github.com/petshop/erp/internal/domain/finance"
)

// ReportService is the slice of reportapp.ReportService the handler uses
type ReportService interface {
	DRE(ctx context.Context, req reportapp.PeriodRequest) (*finance.DRE, error)
	Dashboard(ctx context.Context, req reportapp.PeriodRequest) (*reportapp.Dashboard, error)
}

// ReportHandler serves the income statement and the dashboard
type ReportHandler struct {
	BaseHandler
	reportService ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// DRE handles GET /reports/dre?from=2006-01-02&to=2006-01-02
func (h *ReportHandler) DRE(c *gin.Context) {
	var req reportapp.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	dre, err := h.reportService.DRE(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dre)
}

// Dashboard handles GET /reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	var req reportapp.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	out, err := h.reportService.Dashboard(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}
