package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormscout-backend/model"
	"dormscout-backend/pkg/notify"
)

type NotificationController struct {
	inbox *notify.Inbox
	hub   *notify.Hub
}

func NewNotificationController(inbox *notify.Inbox, hub *notify.Hub) *NotificationController {
	return &NotificationController{inbox: inbox, hub: hub}
}

// Pending lists wishlist matches that have not auto-dismissed yet.
func (ctl *NotificationController) Pending(c *gin.Context) {
	pending := ctl.inbox.Pending(c.Param("id"))
	if pending == nil {
		pending = []model.WishlistMatch{}
	}
	c.JSON(http.StatusOK, pending)
}

func (ctl *NotificationController) Socket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: "user_id is required"})
		return
	}
	if err := ctl.hub.Serve(c.Writer, c.Request, userID); err != nil {
		_ = c.Error(err)
	}
}
