package vendors

import (
	"net/http"

	"tprmgrc/internal/config"
	core "tprmgrc/internal/core/vendors"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/models/dto"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
)

// CreateRFP handles POST /rfps
// @Summary      Create an RFP
// @Tags         rfps
// @Accept       json
// @Produce      json
// @Param        body  body      vendors.RFPInput  true  "RFP"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /rfps [post]
func CreateRFP(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in core.RFPInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		rfp, err := cfg.Vendors.CreateRFP(c.Request.Context(), middleware.Actor(c), in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, rfp, "RFP created"))
	}
}

// GetRFP handles GET /rfps/:id
// @Summary      Get an RFP
// @Tags         rfps
// @Produce      json
// @Param        id   path      int  true  "RFP ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /rfps/{id} [get]
func GetRFP(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		rfp, err := cfg.Vendors.GetRFP(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, rfp, ""))
	}
}

// CreateInvitation handles POST /rfps/:id/invitations
// @Summary      Invite a vendor to an RFP
// @Description  Mints a unique token and the tracked invitation links
// @Tags         rfps
// @Accept       json
// @Produce      json
// @Param        id    path      int                      true  "RFP ID"
// @Param        body  body      vendors.InvitationInput  true  "Recipient"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /rfps/{id}/invitations [post]
func CreateInvitation(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var in core.InvitationInput
		if err := utils.BindJSON(c, &in); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		inv, err := cfg.Vendors.CreateInvitation(c.Request.Context(), middleware.Actor(c), id, in)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(c, inv, "Invitation created"))
	}
}

// ListInvitations handles GET /rfps/:id/invitations
// @Summary      Invitations of an RFP
// @Tags         rfps
// @Produce      json
// @Param        id   path      int  true  "RFP ID"
// @Success      200  {object}  dto.SuccessResponse
// @Security     BearerAuth
// @Router       /rfps/{id}/invitations [get]
func ListInvitations(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.PathID(c, "id")
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		list, err := cfg.Vendors.ListInvitations(c.Request.Context(), id)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, list, ""))
	}
}

func invitationIDs(c *gin.Context) (int64, int64, error) {
	rfpID, err := utils.PathID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	invID, err := utils.PathID(c, "invitation_id")
	return rfpID, invID, err
}

// GetInvitation handles GET /rfps/:id/invitations/:invitation_id
// @Summary      Get an invitation
// @Tags         rfps
// @Produce      json
// @Param        id             path      int  true  "RFP ID"
// @Param        invitation_id  path      int  true  "Invitation ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /rfps/{id}/invitations/{invitation_id} [get]
func GetInvitation(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfpID, invID, err := invitationIDs(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		inv, err := cfg.Vendors.GetInvitation(c.Request.Context(), rfpID, invID)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, inv, ""))
	}
}

type transitionRequest struct {
	Status e.InvitationStatus `json:"status" binding:"required" example:"SENT"`
}

// TransitionInvitation handles PATCH /rfps/:id/invitations/:invitation_id/status
// @Summary      Move an invitation through its lifecycle
// @Tags         rfps
// @Accept       json
// @Produce      json
// @Param        id             path      int                true  "RFP ID"
// @Param        invitation_id  path      int                true  "Invitation ID"
// @Param        body           body      transitionRequest  true  "Target status"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /rfps/{id}/invitations/{invitation_id}/status [patch]
func TransitionInvitation(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfpID, invID, err := invitationIDs(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		var req transitionRequest
		if err := utils.BindJSON(c, &req); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		inv, err := cfg.Vendors.Transition(c.Request.Context(), middleware.Actor(c), rfpID, invID, req.Status)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, inv, ""))
	}
}

// trackingView is what the public tracking endpoints reveal
type trackingView struct {
	RFPID        int64              `json:"rfp_id"`
	InvitationID int64              `json:"invitation_id"`
	Status       e.InvitationStatus `json:"status"`
}

func viewOf(inv *e.VendorInvitation) trackingView {
	return trackingView{RFPID: inv.RFPID, InvitationID: inv.InvitationID, Status: inv.InvitationStatus}
}

// AcknowledgeInvitation handles GET /rfp/:id/invitations/:invitation_id/acknowledge
// @Summary      Vendor acknowledges an invitation
// @Tags         tracking
// @Produce      json
// @Param        id             path      int  true  "RFP ID"
// @Param        invitation_id  path      int  true  "Invitation ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /rfp/{id}/invitations/{invitation_id}/acknowledge [get]
func AcknowledgeInvitation(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfpID, invID, err := invitationIDs(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		inv, err := cfg.Vendors.Acknowledge(c.Request.Context(), rfpID, invID)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, viewOf(inv), "Invitation acknowledged"))
	}
}

// DeclineInvitation handles GET /rfp/:id/invitations/:invitation_id/decline
// @Summary      Vendor declines an invitation
// @Tags         tracking
// @Produce      json
// @Param        id             path      int  true  "RFP ID"
// @Param        invitation_id  path      int  true  "Invitation ID"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /rfp/{id}/invitations/{invitation_id}/decline [get]
func DeclineInvitation(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfpID, invID, err := invitationIDs(c)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		inv, err := cfg.Vendors.Decline(c.Request.Context(), rfpID, invID)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, viewOf(inv), "Invitation declined"))
	}
}

type tokenQuery struct {
	Token string `form:"token" binding:"required"`
}

// OpenInvitation handles GET /rfp/:id/respond?token=
// @Summary      Record that a vendor opened an invitation link
// @Tags         tracking
// @Produce      json
// @Param        id     path      int     true  "RFP ID"
// @Param        token  query     string  true  "Invitation token"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /rfp/{id}/respond [get]
func OpenInvitation(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q tokenQuery
		if err := utils.BindQuery(c, &q); err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		inv, err := cfg.Vendors.Open(c.Request.Context(), q.Token)
		if err != nil {
			dto.WriteError(c, cfg.Log(), err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(c, viewOf(inv), ""))
	}
}
