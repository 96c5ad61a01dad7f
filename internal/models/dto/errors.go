package dto

import (
	"errors"

	"tprmgrc/internal/apperrors"
	"tprmgrc/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TransitionDetails names both ends of a refused transition
type TransitionDetails struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WriteError maps err onto its status code and writes the error body.
// Internal errors only expose their reference; the cause is logged.
func WriteError(c *gin.Context, log logger.Interface, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)
	resp := NewErrorResponse(c, status, string(kind), err.Error(), nil)

	var ae *apperrors.Error
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Field = ae.Field
		switch {
		case ae.Kind == apperrors.KindIllegalTransition:
			resp.Details = TransitionDetails{From: ae.From, To: ae.To}
		case len(ae.Fields) > 0:
			resp.Details = ae.Fields
		}
	}

	if kind == apperrors.KindInternal {
		ref := ""
		if ae != nil {
			ref = ae.Ref
		}
		resp.Message = "internal error"
		resp.Details = map[string]string{"ref": ref}
		log.Error("request failed", err, map[string]interface{}{
			"ref":        ref,
			"route":      c.FullPath(),
			"request_id": c.GetString("request_id"),
		})
	}

	c.AbortWithStatusJSON(status, resp)
}
