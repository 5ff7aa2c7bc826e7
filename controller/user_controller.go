package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dormscout-backend/model"
	"dormscout-backend/usecase"
)

type UserController struct {
	usecase *usecase.UserUsecase
}

func NewUserController(u *usecase.UserUsecase) *UserController {
	return &UserController{usecase: u}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ctl *UserController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := ctl.usecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ctl *UserController) Logout(c *gin.Context) {
	if err := ctl.usecase.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in profile, 404 when nobody is signed in.
func (ctl *UserController) Me(c *gin.Context) {
	user, err := ctl.usecase.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ctl *UserController) Get(c *gin.Context) {
	user, err := ctl.usecase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ctl *UserController) Update(c *gin.Context) {
	var req usecase.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := ctl.usecase.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type wishlistRequest struct {
	ItemName string          `json:"item_name"`
	MaxPrice decimal.Decimal `json:"max_price"`
}

func (ctl *UserController) AddWishlistEntry(c *gin.Context) {
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := ctl.usecase.AddWishlistEntry(c.Request.Context(), c.Param("id"), req.ItemName, req.MaxPrice)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (ctl *UserController) RemoveWishlistEntry(c *gin.Context) {
	if err := ctl.usecase.RemoveWishlistEntry(c.Request.Context(), c.Param("id"), c.Param("entryId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctl *UserController) Deals(c *gin.Context) {
	deals, err := ctl.usecase.Deals(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if deals == nil {
		deals = []model.Deal{}
	}
	c.JSON(http.StatusOK, deals)
}
