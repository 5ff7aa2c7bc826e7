package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormscout-backend/model"
	"dormscout-backend/usecase"
)

type ChatController struct {
	usecase *usecase.ChatUsecase
}

func NewChatController(u *usecase.ChatUsecase) *ChatController {
	return &ChatController{usecase: u}
}

func (ctl *ChatController) Conversations(c *gin.Context) {
	convs, err := ctl.usecase.Conversations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (ctl *ChatController) Messages(c *gin.Context) {
	msgs, err := ctl.usecase.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

type directMessageRequest struct {
	SenderID        string `json:"sender_id"`
	SenderName      string `json:"sender_name"`
	ParticipantName string `json:"participant_name"`
	Text            string `json:"text"`
}

func (ctl *ChatController) Send(c *gin.Context) {
	var req directMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := ctl.usecase.SendDirectMessage(c.Request.Context(), c.Param("id"), req.SenderID, req.SenderName, req.ParticipantName, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
