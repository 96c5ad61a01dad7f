package approvals

import (
	"net/http"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/approvals"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// filterFrom reads the shared listing filters off the query string
func filterFrom(c *gin.Context) (sqlserver.ApprovalFilter, error) {
	f := sqlserver.ApprovalFilter{
		ObjectType: e.ApprovalObjectType(strings.ToUpper(c.Query("object_type"))),
		WorkflowID: c.Query("workflow_id"),
	}
	for _, s := range utils.QueryList(c, "status") {
		f.Status = append(f.Status, e.ApprovalStatus(strings.ToUpper(s)))
	}
	var err error
	if f.ObjectID, err = utils.QueryInt64(c, "object_id"); err != nil {
		return f, err
	}
	if raw := c.Query("due_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, apperrors.Validation("due_before", "must be an RFC3339 timestamp")
		}
		f.DueBefore = &t
	}
	switch c.Query("sla") {
	case "":
	case "only":
		f.OnlySLA = true
	case "exclude":
		f.OnlyNonSLA = true
	default:
		return f, apperrors.Validation("sla", "must be only or exclude")
	}
	return f, nil
}

// AssignApproval handles POST /approvals
// @Summary      Assign an approval
// @Description  The caller becomes the assigner. The target object must exist.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        body  body      approvals.AssignInput  true  "Assignment"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /approvals [post]
func AssignApproval(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in core.AssignInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		a, err := cfg.Approvals.Assign(c.Request.Context(), middleware.Actor(c), in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, a, "Approval assigned"))
	}
}

// GetApproval handles GET /approvals/:id
// @Summary      Get an approval
// @Tags         approvals
// @Produce      json
// @Param        id   path      int  true  "Approval ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /approvals/{id} [get]
func GetApproval(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		a, err := cfg.Approvals.Get(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, a, ""))
	}
}

type actRequest struct {
	Status      e.ApprovalStatus `json:"status" binding:"required" example:"APPROVED"`
	CommentText string           `json:"comment_text"`
}

// ActOnApproval handles POST /approvals/:id/actions
// @Summary      Act on an approval
// @Description  Only the assignee may act. EXPIRED is reserved to the sweeper.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id    path      int         true  "Approval ID"
// @Param        body  body      actRequest  true  "Action"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /approvals/{id}/actions [post]
func ActOnApproval(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var req actRequest
		if err := utils.BindJSON(c, &req); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		a, err := cfg.Approvals.Act(c.Request.Context(), id, req.Status, middleware.Actor(c), req.CommentText)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, a, ""))
	}
}

func writePage(c *gin.Context, page *core.Page) {
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(c, page.Approvals, dto.NewPagination(page.Page, page.PageSize, page.Total), ""))
}

// ListApprovals handles GET /approvals
// @Summary      List approvals
// @Tags         approvals
// @Produce      json
// @Param        object_type  query  string  false  "Object type"
// @Param        object_id    query  int     false  "Object ID"
// @Param        status       query  string  false  "Comma separated statuses"
// @Param        workflow_id  query  string  false  "Workflow"
// @Param        due_before   query  string  false  "RFC3339 timestamp"
// @Param        sla          query  string  false  "only or exclude"
// @Param        page         query  int     false  "Page number"
// @Param        page_size    query  int     false  "Page size"
// @Success      200  {object}  dto.PaginatedResponse
// @Security     BearerAuth
// @Router       /approvals [get]
func ListApprovals(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := filterFrom(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		f.AssigneeID = c.Query("assignee_id")
		f.AssignerID = c.Query("assigner_id")
		page, err := cfg.Approvals.List(c.Request.Context(), f, utils.QueryInt(c, "page", 1), utils.QueryInt(c, "page_size", 50))
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		writePage(c, page)
	}
}

// ListAssigned handles GET /approvals/assigned
// @Summary      Approvals assigned to the caller
// @Tags         approvals
// @Produce      json
// @Success      200  {object}  dto.PaginatedResponse
// @Security     BearerAuth
// @Router       /approvals/assigned [get]
func ListAssigned(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := filterFrom(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		page, err := cfg.Approvals.ListAssigned(c.Request.Context(), middleware.Actor(c), f, utils.QueryInt(c, "page", 1), utils.QueryInt(c, "page_size", 50))
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		writePage(c, page)
	}
}

// ListAssigner handles GET /approvals/assigner
// @Summary      Approvals the caller handed out
// @Tags         approvals
// @Produce      json
// @Success      200  {object}  dto.PaginatedResponse
// @Security     BearerAuth
// @Router       /approvals/assigner [get]
func ListAssigner(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := filterFrom(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		page, err := cfg.Approvals.ListAssigner(c.Request.Context(), middleware.Actor(c), f, utils.QueryInt(c, "page", 1), utils.QueryInt(c, "page_size", 50))
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		writePage(c, page)
	}
}

// ApprovalStats handles GET /approvals/stats
// @Summary      Approval counts per status
// @Tags         approvals
// @Produce      json
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /approvals/stats [get]
func ApprovalStats(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := filterFrom(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		f.AssigneeID = c.Query("assignee_id")
		f.AssignerID = c.Query("assigner_id")
		stats, err := cfg.Approvals.Stats(c.Request.Context(), f)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, stats, ""))
	}
}

// OverdueApprovals handles GET /approvals/overdue
// @Summary      Open approvals past their due date
// @Tags         approvals
// @Produce      json
// @Param        limit  query  int  false  "Max rows"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /approvals/overdue [get]
func OverdueApprovals(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := cfg.Approvals.Overdue(c.Request.Context(), time.Now(), utils.QueryInt(c, "limit", 100))
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, rows, ""))
	}
}
