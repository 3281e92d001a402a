package routes

import (
	"github.com/ai2c/amap/internal/app/controllers"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/ai2c/amap/internal/pkg/websocket"
	"github.com/gin-gonic/gin"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Unit         *controllers.UnitController
	Soldier      *controllers.SoldierController
	Request      *controllers.RequestController
	Flag         *controllers.FlagController
	Designation  *controllers.DesignationController
	Fault        *controllers.FaultController
	ETL          *controllers.ETLController
	Form         *controllers.FormController
	Document     *controllers.DocumentController
	Notification *controllers.NotificationController
	Report       *controllers.ReportController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	wsHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// Health check endpoint (public)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// --- ETL routes: scheduler service key or an admin ---
	etl := v1.Group("/etl")
	etl.Use(authMiddleware.ServiceKeyOrAdmin())
	{
		etl.POST("/faults", c.ETL.TransformFaults)
		etl.POST("/soldiers", c.ETL.TransformSoldiers)
		etl.POST("/units", c.ETL.ImportUnits)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/login", c.Soldier.Login)

	users := authenticated.Group("/users")
	{
		users.POST("", c.Soldier.CreateSoldier)
		users.GET("/:user_id", c.Soldier.GetSoldier)
		users.PUT("/:user_id", c.Soldier.UpdateSoldier)
		users.GET("/mos_codes/:type", c.Soldier.ListMOS)
		users.GET("/elevated_roles/:user_id", c.Soldier.ElevatedRoles)
	}

	units := authenticated.Group("/units")
	{
		units.GET("", c.Unit.ListUnits)
		units.POST("", c.Unit.CreateTaskForce)
		units.GET("/task-forces", c.Unit.ListTaskForces)
		units.GET("/soldiers", c.Unit.UnitSoldiers)
		units.GET("/:uic", c.Unit.GetUnit)
		units.PUT("/:uic", c.Unit.UpdateUnit)
		units.GET("/:uic/hierarchy", c.Unit.GetHierarchy)

		unitsAdmin := units.Group("")
		unitsAdmin.Use(authMiddleware.AdminRequired())
		{
			unitsAdmin.POST("/rebuild", c.Unit.RebuildHierarchy)
		}
	}

	requests := authenticated.Group("/requests")
	{
		requests.GET("/counts", c.Request.Counts)
		requests.POST("/permission", c.Request.CreatePermissionRequest)
		requests.GET("/permission", c.Request.ListPermissionRequests)
		requests.PUT("/permission/adjudicate", c.Request.AdjudicatePermissions)
		requests.POST("/transfer", c.Request.CreateTransferRequest)
		requests.GET("/transfer", c.Request.ListTransferRequests)
		requests.PUT("/transfer/adjudicate", c.Request.AdjudicateTransfers)
	}

	roles := authenticated.Group("/roles")
	{
		roles.GET("/:user_id", c.Request.UserRoles)
		roles.DELETE("/:id", c.Request.DeleteRole)
	}

	flags := authenticated.Group("/flags")
	{
		flags.POST("", c.Flag.CreateFlag)
		flags.GET("/soldier/:soldier_id", c.Flag.ListFlags)
		flags.PUT("/:id", c.Flag.UpdateFlag)
		flags.DELETE("/:id", c.Flag.DeleteFlag)
	}

	designations := authenticated.Group("/designations")
	{
		designations.GET("/types", c.Designation.ListTypes)
		designations.GET("/soldier/:user_id", c.Designation.ListDesignations)
		designations.POST("", c.Designation.CreateDesignation)
		designations.DELETE("/:id", c.Designation.RemoveDesignation)
	}

	faults := authenticated.Group("/faults")
	{
		faults.GET("/status_codes", c.Fault.StatusCodes)
		faults.GET("/soldier/:user_id/history", c.Fault.SoldierHistory)
		faults.GET("/soldier/:user_id/ids", c.Fault.SoldierFaultIDs)
		faults.GET("/soldier/:user_id/wucs", c.Fault.SoldierWUCs)
		faults.GET("/maintainer/:user_id/:start/:end", c.Fault.MaintainerFaults)
		faults.GET("/:fault_id", c.Fault.GetFault)
	}

	forms := authenticated.Group("/forms")
	{
		forms.GET("/award_types", c.Form.AwardTypes)
		forms.GET("/event_types", c.Form.EventTypes)
		forms.GET("/training_types", c.Form.TrainingTypes)
		forms.GET("/evaluation_types", c.Form.EvaluationTypes)
		forms.GET("/tcs_locations", c.Form.TCSLocations)
		forms.GET("/tasks", c.Form.Tasks)

		events := forms.Group("/events")
		{
			events.POST("", c.Form.AddEvent)
			events.POST("/mass_training", c.Form.MassTraining)
			events.GET("/user/:user_id", c.Form.ListUserEvents)
			events.GET("/:id", c.Form.GetEvent)
			events.PUT("/:id", c.Form.UpdateEvent)
			events.DELETE("/:id", c.Form.DeleteEvent)
		}

		counselings := forms.Group("/counselings")
		{
			counselings.POST("/soldier/:soldier_id", c.Document.AddCounseling)
			counselings.GET("/soldier/:soldier_id", c.Document.ListCounselings)
			counselings.GET("/:id", c.Document.GetCounseling)
			counselings.DELETE("/:id", c.Document.DeleteCounseling)
		}

		documents := forms.Group("/documents")
		{
			documents.GET("/types", c.Document.DocumentTypes)
			documents.POST("/combined", c.Document.CombinedDocuments)
			documents.POST("/soldier/:soldier_id", c.Document.AddSupportingDocument)
			documents.GET("/soldier/:soldier_id", c.Document.ListSupportingDocuments)
			documents.GET("/:id", c.Document.GetSupportingDocument)
			documents.PUT("/:id", c.Document.UpdateSupportingDocument)
			documents.DELETE("/:id", c.Document.DeleteSupportingDocument)
		}
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", c.Notification.ListNotifications)
		notifications.PUT("/read", c.Notification.MarkRead)
		// browsers cannot set headers on upgrade; the token query parameter is accepted here
		notifications.GET("/ws", wsHandler.HandleConnection)

		notificationsAdmin := notifications.Group("")
		notificationsAdmin.Use(authMiddleware.AdminRequired())
		{
			notificationsAdmin.POST("/announcements", c.Notification.Announce)
		}
	}

	reports := authenticated.Group("/reports")
	{
		reports.GET("/unit-summary/:uic", c.Report.UnitSummary)
	}
}
