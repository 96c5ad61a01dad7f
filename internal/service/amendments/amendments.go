package amendments

import (
	"net/http"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/amendments"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// CreateAmendment handles POST /contracts/:id/amendments
// @Summary      Amend a contract
// @Description  Versions the source into a PENDING_ASSIGNMENT amendment row and records the amendment. The terms and clauses in the body are the full set of the new row.
// @Tags         amendments
// @Accept       json
// @Produce      json
// @Param        id    path      int                 true  "Source contract ID"
// @Param        body  body      amendments.Request  true  "Amendment"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/amendments [post]
func CreateAmendment(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var req core.Request
		if err := utils.BindJSON(c, &req); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		res, err := cfg.Amendments.CreateAmendment(c.Request.Context(), middleware.Actor(c), id, req)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		msg := "Amendment created"
		if res.Fallback {
			msg = "Amendment created; metadata stored in custom_fields"
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, res, msg))
	}
}

// ListAmendments handles GET /contracts/:id/amendments
// @Summary      Amendment records of a contract lineage
// @Tags         amendments
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/amendments [get]
func ListAmendments(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		list, err := cfg.Amendments.List(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, list, ""))
	}
}

// GetAmendment handles GET /amendments/:id
// @Summary      Get an amendment record
// @Tags         amendments
// @Produce      json
// @Param        id   path      int  true  "Amendment ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /amendments/{id} [get]
func GetAmendment(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		a, err := cfg.Amendments.Get(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, a, ""))
	}
}

// UpdateAmendment handles PATCH /amendments/:id
// @Summary      Update an amendment record
// @Tags         amendments
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Amendment ID"
// @Param        body  body      amendments.Patch  true  "Fields to change"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /amendments/{id} [patch]
func UpdateAmendment(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var p core.Patch
		if err := utils.BindJSON(c, &p); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		a, err := cfg.Amendments.Update(c.Request.Context(), middleware.Actor(c), id, p)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, a, ""))
	}
}

// CompareWithPrevious handles GET /contracts/:id/amendments/compare
// @Summary      Diff an amendment row against the version it came from
// @Tags         amendments
// @Produce      json
// @Param        id   path      int  true  "Amendment contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/amendments/compare [get]
func CompareWithPrevious(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		cmp, err := cfg.Amendments.CompareWithPrevious(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, cmp, ""))
	}
}
