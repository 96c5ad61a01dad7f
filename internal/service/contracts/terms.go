package contracts

import (
	"net/http"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/contracts"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListTerms handles GET /contracts/:id/terms
// @Summary      Terms of a contract
// @Tags         terms
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/terms [get]
func ListTerms(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		terms, err := cfg.Contracts.ListTerms(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, terms, ""))
	}
}

// CreateTerm handles POST /contracts/:id/terms
// @Summary      Add a term
// @Description  A taken term_id is replaced by a fresh one; the response carries the id the caller proposed
// @Tags         terms
// @Accept       json
// @Produce      json
// @Param        id    path      int                  true  "Contract ID"
// @Param        body  body      contracts.TermInput  true  "Term"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/terms [post]
func CreateTerm(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.TermInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		res, err := cfg.Contracts.CreateTerm(c.Request.Context(), middleware.Actor(c), id, in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, res, "Term created"))
	}
}

// UpdateTerm handles PUT /contracts/:id/terms/:term_id
// @Summary      Replace a term
// @Tags         terms
// @Accept       json
// @Produce      json
// @Param        id       path      int                  true  "Contract ID"
// @Param        term_id  path      string               true  "Term ID"
// @Param        body     body      contracts.TermInput  true  "Term"
// @Success      200      {object}  dto.SuccessResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/terms/{term_id} [put]
func UpdateTerm(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.TermInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		term, err := cfg.Contracts.UpdateTerm(c.Request.Context(), middleware.Actor(c), id, c.Param("term_id"), in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, term, ""))
	}
}

// DeleteTerm handles DELETE /contracts/:id/terms/:term_id
// @Summary      Delete a term
// @Tags         terms
// @Param        id       path  int     true  "Contract ID"
// @Param        term_id  path  string  true  "Term ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/terms/{term_id} [delete]
func DeleteTerm(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		if err := cfg.Contracts.DeleteTerm(c.Request.Context(), middleware.Actor(c), id, c.Param("term_id")); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DeleteAllTerms handles DELETE /contracts/:id/terms
// @Summary      Delete every term of a contract
// @Tags         terms
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/terms [delete]
func DeleteAllTerms(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		n, err := cfg.Contracts.DeleteAllTerms(c.Request.Context(), middleware.Actor(c), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, gin.H{"deleted": n}, ""))
	}
}

// ListClauses handles GET /contracts/:id/clauses
// @Summary      Clauses of a contract
// @Tags         clauses
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/clauses [get]
func ListClauses(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		clauses, err := cfg.Contracts.ListClauses(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, clauses, ""))
	}
}

// CreateClause handles POST /contracts/:id/clauses
// @Summary      Add a clause
// @Tags         clauses
// @Accept       json
// @Produce      json
// @Param        id    path      int                    true  "Contract ID"
// @Param        body  body      contracts.ClauseInput  true  "Clause"
// @Success      201   {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/clauses [post]
func CreateClause(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.ClauseInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		clause, err := cfg.Contracts.CreateClause(c.Request.Context(), middleware.Actor(c), id, in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, clause, "Clause created"))
	}
}

// UpdateClause handles PUT /contracts/:id/clauses/:clause_id
// @Summary      Replace a clause
// @Tags         clauses
// @Accept       json
// @Produce      json
// @Param        id         path      int                    true  "Contract ID"
// @Param        clause_id  path      string                 true  "Clause ID"
// @Param        body       body      contracts.ClauseInput  true  "Clause"
// @Success      200        {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/clauses/{clause_id} [put]
func UpdateClause(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.ClauseInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		clause, err := cfg.Contracts.UpdateClause(c.Request.Context(), middleware.Actor(c), id, c.Param("clause_id"), in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, clause, ""))
	}
}

// DeleteClause handles DELETE /contracts/:id/clauses/:clause_id
// @Summary      Delete a clause
// @Tags         clauses
// @Param        id         path  int     true  "Contract ID"
// @Param        clause_id  path  string  true  "Clause ID"
// @Success      204
// @Security     BearerAuth
// @Router       /contracts/{id}/clauses/{clause_id} [delete]
func DeleteClause(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		if err := cfg.Contracts.DeleteClause(c.Request.Context(), middleware.Actor(c), id, c.Param("clause_id")); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DeleteAllClauses handles DELETE /contracts/:id/clauses
// @Summary      Delete every clause of a contract
// @Tags         clauses
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/clauses [delete]
func DeleteAllClauses(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		n, err := cfg.Contracts.DeleteAllClauses(c.Request.Context(), middleware.Actor(c), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, gin.H{"deleted": n}, ""))
	}
}
