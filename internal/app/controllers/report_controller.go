package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/ai2c/amap/internal/pkg/report"
	"github.com/gin-gonic/gin"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportController serves unit reports
type ReportController struct {
	reportService services.ReportService
}

// NewReportController creates a new ReportController
func NewReportController(reportService services.ReportService) *ReportController {
	return &ReportController{
		reportService: reportService,
	}
}

// UnitSummary reports maintenance levels per MOS for a unit and its subordinates
// @Summary Unit summary report
// @Tags reports
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param uic path string true "Unit UIC"
// @Param format query string false "Output format" Enums(json, csv, xlsx) default(json)
// @Success 200 {object} dto.APIResponse{data=dto.UnitSummaryResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /reports/unit-summary/{uic} [get]
func (c *ReportController) UnitSummary(ctx *gin.Context) {
	format := strings.ToLower(ctx.DefaultQuery("format", formatJSON))
	if format != formatJSON && format != formatCSV && format != formatXLSX {
		badRequest(ctx, fmt.Sprintf("Unsupported report format %q.", format))
		return
	}

	summary, err := c.reportService.UnitSummary(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("uic"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	switch format {
	case formatCSV:
		c.attachment(ctx, summary.UIC, formatCSV, "text/csv")
		err = report.WriteCSV(ctx.Writer, summary.Rows)
	case formatXLSX:
		c.attachment(ctx, summary.UIC, formatXLSX, xlsxContentType)
		err = report.WriteXLSX(ctx.Writer, summary.Rows)
	default:
		respond(ctx, http.StatusOK, summary, "")
		return
	}
	if err != nil {
		_ = ctx.Error(err)
	}
}

func (c *ReportController) attachment(ctx *gin.Context, uic, ext, contentType string) {
	ctx.Header("Content-Type", contentType)
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_unit_summary.%s"`, uic, ext))
	ctx.Status(http.StatusOK)
}
