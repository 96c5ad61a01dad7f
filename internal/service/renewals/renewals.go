package renewals

import (
	"net/http"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/renewals"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// CreateRenewal handles POST /contracts/:id/renewals
// @Summary      Record a renewal for a contract
// @Tags         renewals
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Contract ID"
// @Param        body  body      renewals.Input  true  "Renewal"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/renewals [post]
func CreateRenewal(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.Input
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		r, err := cfg.Renewals.Create(c.Request.Context(), middleware.Actor(c), id, in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, r, "Renewal created"))
	}
}

// ListRenewals handles GET /contracts/:id/renewals
// @Summary      Renewals of a contract
// @Tags         renewals
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/renewals [get]
func ListRenewals(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		list, err := cfg.Renewals.List(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, list, ""))
	}
}

// GetRenewal handles GET /renewals/:id
// @Summary      Get a renewal
// @Tags         renewals
// @Produce      json
// @Param        id   path      int  true  "Renewal ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /renewals/{id} [get]
func GetRenewal(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		r, err := cfg.Renewals.Get(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, r, ""))
	}
}

// UpdateRenewal handles PATCH /renewals/:id
// @Summary      Update a renewal
// @Tags         renewals
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Renewal ID"
// @Param        body  body      renewals.Patch  true  "Fields to change"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /renewals/{id} [patch]
func UpdateRenewal(cfg *config.App) gin.HandlerFunc {
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
		r, err := cfg.Renewals.Update(c.Request.Context(), middleware.Actor(c), id, p)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, r, ""))
	}
}

// DeleteRenewal handles DELETE /renewals/:id
// @Summary      Delete a renewal
// @Tags         renewals
// @Param        id   path  int  true  "Renewal ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /renewals/{id} [delete]
func DeleteRenewal(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		if err := cfg.Renewals.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
