package vendors

import (
	"net/http"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/vendors"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// CreateVendor handles POST /vendors
// @Summary      Register a vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        body  body      vendors.VendorInput  true  "Vendor"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vendors [post]
func CreateVendor(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in core.VendorInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		v, err := cfg.Vendors.CreateVendor(c.Request.Context(), middleware.Actor(c), in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, v, "Vendor created"))
	}
}

// GetVendor handles GET /vendors/:id
// @Summary      Vendor with its contacts
// @Tags         vendors
// @Produce      json
// @Param        id   path      int  true  "Vendor ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/{id} [get]
func GetVendor(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		v, err := cfg.Vendors.GetVendor(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, v, ""))
	}
}

// AddContact handles POST /vendors/:id/contacts
// @Summary      Add a vendor contact
// @Description  A primary contact demotes the current one
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        id    path      int                   true  "Vendor ID"
// @Param        body  body      vendors.ContactInput  true  "Contact"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/{id}/contacts [post]
func AddContact(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.ContactInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contact, err := cfg.Vendors.AddContact(c.Request.Context(), middleware.Actor(c), id, in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, contact, "Contact added"))
	}
}

// ListContacts handles GET /vendors/:id/contacts
// @Summary      Contacts of a vendor
// @Tags         vendors
// @Produce      json
// @Param        id   path      int  true  "Vendor ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /vendors/{id}/contacts [get]
func ListContacts(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		list, err := cfg.Vendors.ListContacts(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, list, ""))
	}
}

// SetPrimaryContact handles PUT /vendors/:id/contacts/:contact_id/primary
// @Summary      Make a contact the primary one
// @Tags         vendors
// @Produce      json
// @Param        id          path      int  true  "Vendor ID"
// @Param        contact_id  path      int  true  "Contact ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/{id}/contacts/{contact_id}/primary [put]
func SetPrimaryContact(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contactID, err := utils.PathID(c, "contact_id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		contact, err := cfg.Vendors.SetPrimary(c.Request.Context(), middleware.Actor(c), id, contactID)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, contact, ""))
	}
}
