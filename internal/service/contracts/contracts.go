package contracts

import (
	"net/http"
	"strings"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/contracts"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/elsearch"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListContracts handles GET /contracts
// @Summary      List contracts
// @Description  Returns a filtered page of contracts. Archived rows are hidden unless asked for.
// @Tags         contracts
// @Produce      json
// @Param        status            query  string  false  "Comma separated statuses"
// @Param        kind              query  string  false  "MAIN, SUBCONTRACT or AMENDMENT"
// @Param        vendor_id         query  int     false  "Vendor"
// @Param        main_contract_id  query  int     false  "Lineage root"
// @Param        parent_id         query  int     false  "Parent contract"
// @Param        include_archived  query  bool    false  "Include archived rows"
// @Param        only_archived     query  bool    false  "Only archived rows"
// @Param        q                 query  string  false  "Number or title contains"
// @Param        page              query  int     false  "Page number"
// @Param        page_size         query  int     false  "Page size"
// @Param        order_by          query  string  false  "Ordering column"
// @Param        desc              query  bool    false  "Descending order"
// @Success      200  {object}  dto.PaginatedResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts [get]
func ListContracts(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := sqlserver.ContractFilter{
			Kind:            e.ContractKind(strings.ToUpper(c.Query("kind"))),
			IncludeArchived: utils.QueryBool(c, "include_archived"),
			OnlyArchived:    utils.QueryBool(c, "only_archived"),
			Search:          c.Query("q"),
		}
		for _, s := range utils.QueryList(c, "status") {
			f.Status = append(f.Status, e.ContractStatus(strings.ToUpper(s)))
		}
		var err error
		if f.VendorID, err = utils.QueryInt64(c, "vendor_id"); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		if f.MainContractID, err = utils.QueryInt64(c, "main_contract_id"); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		if f.ParentID, err = utils.QueryInt64(c, "parent_id"); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}

		page, err := cfg.Contracts.List(c.Request.Context(), f,
			utils.QueryInt(c, "page", 1), utils.QueryInt(c, "page_size", 50),
			c.Query("order_by"), utils.QueryBool(c, "desc"))
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewPaginatedResponse(c, page.Contracts, dto.NewPagination(page.Page, page.PageSize, page.Total), ""))
	}
}

// GetContract handles GET /contracts/:id
// @Summary      Get contract by ID
// @Tags         contracts
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id} [get]
func GetContract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contract, err := cfg.Contracts.Get(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, contract, ""))
	}
}

// CreateContract handles POST /contracts
// @Summary      Create a main contract
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        body  body      contracts.Input  true  "Contract"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts [post]
func CreateContract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in core.Input
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contract, err := cfg.Contracts.Create(c.Request.Context(), middleware.Actor(c), in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, contract, "Contract created"))
	}
}

// UpdateContract handles PATCH /contracts/:id
// @Summary      Update a contract
// @Description  Applies the fields present in the body. A null JSON bag clears it.
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        id    path      int              true  "Contract ID"
// @Param        body  body      contracts.Patch  true  "Fields to change"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id} [patch]
func UpdateContract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		raw, err := utils.RawBody(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		patch, err := core.DecodePatch(raw)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contract, err := cfg.Contracts.Update(c.Request.Context(), middleware.Actor(c), id, patch)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, contract, ""))
	}
}

type archiveRequest struct {
	Reason        string `json:"reason"`
	Comments      string `json:"comments"`
	CanBeRestored *bool  `json:"can_be_restored"`
}

// ArchiveContract handles POST /contracts/:id/archive
// @Summary      Archive a contract
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Contract ID"
// @Param        body  body      archiveRequest  false "Reason"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/archive [post]
func ArchiveContract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var req archiveRequest
		if c.Request.ContentLength != 0 {
			if err := utils.BindJSON(c, &req); err != nil {
				dto.WriteError(c, cfg.Log(), err)
				return
			}
		}
		restorable := true
		if req.CanBeRestored != nil {
			restorable = *req.CanBeRestored
		}
		if err := cfg.Contracts.Archive(c.Request.Context(), middleware.Actor(c), id, req.Reason, req.Comments, restorable); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, gin.H{"contract_id": id}, "Contract archived"))
	}
}

// RestoreContract handles POST /contracts/:id/restore
// @Summary      Restore an archived contract
// @Tags         contracts
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/restore [post]
func RestoreContract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		if err := cfg.Contracts.Restore(c.Request.Context(), middleware.Actor(c), id); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, gin.H{"contract_id": id}, "Contract restored"))
	}
}

// ExecuteContract handles POST /contracts/:id/execute
// @Summary      Execute an approved contract
// @Tags         contracts
// @Produce      json
// @Param        id   path      int  true  "Contract ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/{id}/execute [post]
func ExecuteContract(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contract, err := cfg.Contracts.Execute(c.Request.Context(), middleware.Actor(c), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, contract, "Contract executed"))
	}
}

type searchQuery struct {
	Query    string `form:"q" binding:"required,notblank"`
	Page     int    `form:"page" binding:"gte=1"`
	PageSize int    `form:"page_size" binding:"gte=1,max=100"`
}

// SearchContracts handles GET /contracts/search
// @Summary      Full-text contract search
// @Tags         contracts
// @Produce      json
// @Param        q          query     string  true   "Search text"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size"
// @Success      200  {object}  dto.PaginatedResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /contracts/search [get]
func SearchContracts(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.ES == nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Search is not configured", nil))
			return
		}
		params := searchQuery{Page: 1, PageSize: 20}
		if err := utils.BindQuery(c, &params); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}

		res, err := cfg.ES.SearchContracts(c.Request.Context(), elsearch.SearchParams{
			Query:    strings.TrimSpace(params.Query),
			Page:     params.Page,
			PageSize: params.PageSize,
		})
		if err != nil {
			cfg.Log().Error("contract search failed", err, map[string]interface{}{"q": q})
			c.JSON(http.StatusBadGateway, dto.NewErrorResponse(c, http.StatusBadGateway, "SEARCH_FAILED", "Error while searching contracts", nil))
			return
		}
		c.JSON(http.StatusOK, dto.NewPaginatedResponse(c, res.Contracts, dto.NewPagination(res.Page, res.PageSize, res.Total), ""))
	}
}
