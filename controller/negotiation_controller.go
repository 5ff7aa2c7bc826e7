package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormscout-backend/model"
	"dormscout-backend/usecase"
)

type NegotiationController struct {
	usecase *usecase.NegotiationUsecase
}

func NewNegotiationController(u *usecase.NegotiationUsecase) *NegotiationController {
	return &NegotiationController{usecase: u}
}

type startNegotiationRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ListingID string `json:"listing_id" binding:"required"`
}

func (ctl *NegotiationController) Start(c *gin.Context) {
	var req startNegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := ctl.usecase.Start(c.Request.Context(), req.UserID, req.ListingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (ctl *NegotiationController) Get(c *gin.Context) {
	view, err := ctl.usecase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type sendTurnRequest struct {
	Text string `json:"text"`
}

func (ctl *NegotiationController) Send(c *gin.Context) {
	var req sendTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := ctl.usecase.Send(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type paymentRequest struct {
	Method model.PaymentMethod `json:"method"`
}

func (ctl *NegotiationController) ChoosePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := ctl.usecase.ChoosePayment(c.Request.Context(), c.Param("id"), req.Method)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (ctl *NegotiationController) Close(c *gin.Context) {
	if err := ctl.usecase.Close(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
