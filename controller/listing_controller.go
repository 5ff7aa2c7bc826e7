package controller

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"dormscout-backend/model"
	"dormscout-backend/usecase"
)

type ListingController struct {
	usecase *usecase.ListingUsecase
}

func NewListingController(u *usecase.ListingUsecase) *ListingController {
	return &ListingController{usecase: u}
}

func (ctl *ListingController) GetAll(c *gin.Context) {
	items, err := ctl.usecase.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []model.Listing{}
	}
	c.JSON(http.StatusOK, items)
}

func (ctl *ListingController) Get(c *gin.Context) {
	item, err := ctl.usecase.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// formValue accepts a JSON string or number and keeps it as typed.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(data)
	return nil
}

type createListingRequest struct {
	Title       string    `json:"title"`
	Price       formValue `json:"price"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	SellerID    string    `json:"seller_id"`
	Image       string    `json:"image"`
}

func (ctl *ListingController) Create(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft := model.ListingDraft{
		Title:       req.Title,
		Price:       string(req.Price),
		Description: req.Description,
		Category:    req.Category,
		Kind:        req.Type,
		SellerID:    req.SellerID,
	}
	if _, err := usecase.ValidateDraft(draft); err != nil {
		writeError(c, err)
		return
	}
	img, err := usecase.ParseImageDataURL(req.Image)
	if err != nil {
		writeError(c, err)
		return
	}
	item, err := ctl.usecase.CreateListing(c.Request.Context(), draft, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

type classifyRequest struct {
	Message string `json:"message"`
}

func (ctl *ListingController) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	class, err := ctl.usecase.ClassifyMessage(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": class})
}
