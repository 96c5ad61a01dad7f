package routes

import (
	"tprmgrc/internal/config"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/service/amendments"
	"tprmgrc/internal/service/approvals"
	"tprmgrc/internal/service/contracts"
	"tprmgrc/internal/service/healthcheck"
	"tprmgrc/internal/service/renewals"
	"tprmgrc/internal/service/vendors"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// InitiateRoutes is a function that initializes the routes for the application
func InitiateRoutes(engine *gin.Engine, cfg *config.App) {

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	healthGroup := engine.Group("/healthcheck")
	{
		healthGroup.GET("/", healthcheck.Health(cfg))
	}

	contractsGroup := engine.Group("/contracts", middleware.Auth())
	{
		contractsGroup.GET("", contracts.ListContracts(cfg))
		contractsGroup.POST("", contracts.CreateContract(cfg))
		contractsGroup.GET("/search", contracts.SearchContracts(cfg))
		contractsGroup.GET("/:id", contracts.GetContract(cfg))
		contractsGroup.PATCH("/:id", contracts.UpdateContract(cfg))
		contractsGroup.POST("/:id/archive", contracts.ArchiveContract(cfg))
		contractsGroup.POST("/:id/restore", contracts.RestoreContract(cfg))
		contractsGroup.POST("/:id/execute", contracts.ExecuteContract(cfg))
		contractsGroup.POST("/:id/versions", contracts.CreateVersion(cfg))
		contractsGroup.POST("/:id/subcontracts", contracts.CreateSubcontract(cfg))
		contractsGroup.GET("/:id/comprehensive", contracts.GetComprehensive(cfg))
		contractsGroup.GET("/:id/history", contracts.ContractHistory(cfg))

		contractsGroup.GET("/:id/terms", contracts.ListTerms(cfg))
		contractsGroup.POST("/:id/terms", contracts.CreateTerm(cfg))
		contractsGroup.DELETE("/:id/terms", contracts.DeleteAllTerms(cfg))
		contractsGroup.PUT("/:id/terms/:term_id", contracts.UpdateTerm(cfg))
		contractsGroup.DELETE("/:id/terms/:term_id", contracts.DeleteTerm(cfg))

		contractsGroup.GET("/:id/clauses", contracts.ListClauses(cfg))
		contractsGroup.POST("/:id/clauses", contracts.CreateClause(cfg))
		contractsGroup.DELETE("/:id/clauses", contracts.DeleteAllClauses(cfg))
		contractsGroup.PUT("/:id/clauses/:clause_id", contracts.UpdateClause(cfg))
		contractsGroup.DELETE("/:id/clauses/:clause_id", contracts.DeleteClause(cfg))

		contractsGroup.GET("/:id/amendments", amendments.ListAmendments(cfg))
		contractsGroup.POST("/:id/amendments", amendments.CreateAmendment(cfg))
		contractsGroup.GET("/:id/amendments/compare", amendments.CompareWithPrevious(cfg))

		contractsGroup.GET("/:id/renewals", renewals.ListRenewals(cfg))
		contractsGroup.POST("/:id/renewals", renewals.CreateRenewal(cfg))
	}

	amendmentsGroup := engine.Group("/amendments", middleware.Auth())
	{
		amendmentsGroup.GET("/:id", amendments.GetAmendment(cfg))
		amendmentsGroup.PATCH("/:id", amendments.UpdateAmendment(cfg))
	}

	renewalsGroup := engine.Group("/renewals", middleware.Auth())
	{
		renewalsGroup.GET("/:id", renewals.GetRenewal(cfg))
		renewalsGroup.PATCH("/:id", renewals.UpdateRenewal(cfg))
		renewalsGroup.DELETE("/:id", renewals.DeleteRenewal(cfg))
	}

	approvalsGroup := engine.Group("/approvals", middleware.Auth())
	{
		approvalsGroup.GET("", approvals.ListApprovals(cfg))
		approvalsGroup.POST("", approvals.AssignApproval(cfg))
		approvalsGroup.GET("/assigned", approvals.ListAssigned(cfg))
		approvalsGroup.GET("/assigner", approvals.ListAssigner(cfg))
		approvalsGroup.GET("/stats", approvals.ApprovalStats(cfg))
		approvalsGroup.GET("/overdue", approvals.OverdueApprovals(cfg))
		approvalsGroup.GET("/:id", approvals.GetApproval(cfg))
		approvalsGroup.POST("/:id/actions", approvals.ActOnApproval(cfg))
	}

	vendorsGroup := engine.Group("/vendors", middleware.Auth())
	{
		vendorsGroup.POST("", vendors.CreateVendor(cfg))
		vendorsGroup.GET("/:id", vendors.GetVendor(cfg))
		vendorsGroup.GET("/:id/contacts", vendors.ListContacts(cfg))
		vendorsGroup.POST("/:id/contacts", vendors.AddContact(cfg))
		vendorsGroup.PUT("/:id/contacts/:contact_id/primary", vendors.SetPrimaryContact(cfg))
	}

	rfpsGroup := engine.Group("/rfps", middleware.Auth())
	{
		rfpsGroup.POST("", vendors.CreateRFP(cfg))
		rfpsGroup.GET("/:id", vendors.GetRFP(cfg))
		rfpsGroup.GET("/:id/invitations", vendors.ListInvitations(cfg))
		rfpsGroup.POST("/:id/invitations", vendors.CreateInvitation(cfg))
		rfpsGroup.GET("/:id/invitations/:invitation_id", vendors.GetInvitation(cfg))
		rfpsGroup.PATCH("/:id/invitations/:invitation_id/status", vendors.TransitionInvitation(cfg))
	}

	// Links embedded in invitation emails; vendors follow them without an account
	trackingGroup := engine.Group("/rfp")
	{
		trackingGroup.GET("/:id/respond", vendors.OpenInvitation(cfg))
		trackingGroup.GET("/:id/invitations/:invitation_id/acknowledge", vendors.AcknowledgeInvitation(cfg))
		trackingGroup.GET("/:id/invitations/:invitation_id/decline", vendors.DeclineInvitation(cfg))
	}
}
