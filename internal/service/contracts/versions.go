package contracts

import (
	"encoding/json"
	"net/http"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/contracts"
	"tprmgrc/internal/core/versiongraph"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

type versionRequest struct {
	VersionType string          `json:"version_type"`
	Contract    json.RawMessage `json:"contract"`
}

// CreateVersion handles POST /contracts/:id/versions
// @Summary      Cut a new version of a contract
// @Description  Copies the terms and clauses of the source onto the new version
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Source contract ID"
// @Param        body  body      versionRequest  false "minor or major, plus optional field changes"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/versions [post]
func CreateVersion(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var req versionRequest
		if c.Request.ContentLength != 0 {
			if err := utils.BindJSON(c, &req); err != nil {
				dto.WriteError(c, cfg.Log(), err)
				return
			}
		}
		vt, err := versiongraph.ParseVersionType(req.VersionType)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var patch core.Patch
		if len(req.Contract) > 0 {
			if patch, err = core.DecodePatch(req.Contract); err != nil {
				dto.WriteError(c, cfg.Log(), err)
				return
			}
		}

		res, err := cfg.Contracts.CreateVersion(c.Request.Context(), middleware.Actor(c), id, vt, patch)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, res, "Version created"))
	}
}

type subcontractRequest struct {
	core.Input
	VersionParent bool   `json:"version_parent"`
	VersionType   string `json:"version_type"`
}

// CreateSubcontract handles POST /contracts/:id/subcontracts
// @Summary      Create a subcontract
// @Description  With version_parent the parent is versioned first and the subcontract hangs off the new version
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        id    path      int                 true  "Parent contract ID"
// @Param        body  body      subcontractRequest  true  "Subcontract"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/subcontracts [post]
func CreateSubcontract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var req subcontractRequest
		if err := utils.BindJSON(c, &req); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		actor := middleware.Actor(c)

		if !req.VersionParent {
			sub, err := cfg.Contracts.CreateSubcontract(c.Request.Context(), actor, id, req.Input)
			if err != nil {
				dto.WriteError(c, cfg.Log(), err)
				return
			}
			c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, sub, "Subcontract created"))
			return
		}

		vt, err := versiongraph.ParseVersionType(req.VersionType)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		res, err := cfg.Contracts.CreateSubcontractWithVersioning(c.Request.Context(), actor, id, req.Input, vt)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, res, "Subcontract created"))
	}
}

// GetComprehensive handles GET /contracts/:id/comprehensive
// @Summary      Contract with its terms, clauses and subcontracts
// @Tags         contracts
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/comprehensive [get]
func GetComprehensive(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		view, err := cfg.Contracts.GetComprehensive(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, view, ""))
	}
}

// ContractHistory handles GET /contracts/:id/history
// @Summary      Journaled events of a contract
// @Tags         contracts
// @Produce      json
// @Param        id     path      int  true   "Contract ID"
// @Param        limit  query     int  false  "Max events"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/history [get]
func ContractHistory(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Mongo == nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Event journal is not configured", nil))
			return
		}
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		evs, err := cfg.Mongo.ContractEvents(c.Request.Context(), id, int64(utils.QueryInt(c, "limit", 100)))
		if err != nil {
			cfg.Log().Error("reading contract journal", err, map[string]interface{}{"contract_id": id})
			c.JSON(http.StatusBadGateway, dto.NewErrorResponse(c, http.StatusBadGateway, "JOURNAL_FAILED", "Error while reading contract history", nil))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, evs, ""))
	}
}
