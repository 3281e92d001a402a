package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ETLController triggers the staging transforms and unit imports
type ETLController struct {
	faultETL   services.FaultETLService
	soldierETL services.SoldierETLService
	unitLoader services.UnitLoaderService
}

// NewETLController creates a new ETLController
func NewETLController(faultETL services.FaultETLService, soldierETL services.SoldierETLService, unitLoader services.UnitLoaderService) *ETLController {
	return &ETLController{
		faultETL:   faultETL,
		soldierETL: soldierETL,
		unitLoader: unitLoader,
	}
}

// TransformFaults pulls new faults from staging
// @Summary Transform faults
// @Description filter_date may be sent in the body or the query; it defaults to the configured lookback
// @Tags etl
// @Accept json
// @Produce json
// @Security ServiceKey
// @Security BearerAuth
// @Param filter_date query string false "Only faults discovered on or after this date" example(2024-01-31)
// @Param request body dto.FaultETLRequest false "Sync window"
// @Success 200 {object} dto.APIResponse{data=dto.FaultETLResult}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Staging source database is not configured."
// @Router /etl/faults [post]
func (c *ETLController) TransformFaults(ctx *gin.Context) {
	var req dto.FaultETLRequest
	if ctx.Request.ContentLength > 0 {
		if !middleware.BindJSON(ctx, &req) {
			return
		}
	} else if !middleware.BindQuery(ctx, &req) {
		return
	}

	result, err := c.faultETL.TransformFaults(ctx.Request.Context(), req.FilterDate)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result, result.Message)
}

// TransformSoldiers refreshes soldiers from staging
// @Summary Transform soldiers
// @Tags etl
// @Produce json
// @Security ServiceKey
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SoldierETLResult}
// @Failure 503 {object} dto.ErrorResponse
// @Router /etl/soldiers [post]
func (c *ETLController) TransformSoldiers(ctx *gin.Context) {
	result, err := c.soldierETL.TransformSoldiers(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result, result.Message)
}

// ImportUnits loads units from an uploaded CSV or XLSX file
// @Summary Import units
// @Tags etl
// @Accept multipart/form-data
// @Produce json
// @Security ServiceKey
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX with a uic column"
// @Success 200 {object} dto.APIResponse{data=dto.UnitImportResult}
// @Failure 400 {object} dto.ErrorResponse
// @Router /etl/units [post]
func (c *ETLController) ImportUnits(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		badRequest(ctx, "A file is required.")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(ctx, "Uploaded file could not be read.")
		return
	}
	defer file.Close()

	result, err := c.unitLoader.Import(ctx.Request.Context(), file, header.Filename)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result, "Units imported")
}
