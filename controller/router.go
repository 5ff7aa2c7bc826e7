package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dormscout-backend/pkg/gemini"
	"dormscout-backend/usecase"
)

// retryAfterSeconds is advertised when the agent failure is worth retrying.
const retryAfterSeconds = "5"

type Handlers struct {
	Listings      *ListingController
	Negotiations  *NegotiationController
	Users         *UserController
	Chats         *ChatController
	Notifications *NotificationController
}

func NewRouter(h Handlers, corsOrigin string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors(corsOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/login", h.Users.Login)
	r.POST("/auth/logout", h.Users.Logout)
	r.GET("/auth/me", h.Users.Me)

	users := r.Group("/users/:id")
	{
		users.GET("", h.Users.Get)
		users.PUT("", h.Users.Update)
		users.POST("/wishlist", h.Users.AddWishlistEntry)
		users.DELETE("/wishlist/:entryId", h.Users.RemoveWishlistEntry)
		users.GET("/deals", h.Users.Deals)
		users.GET("/notifications", h.Notifications.Pending)
	}
	r.GET("/ws/notifications", h.Notifications.Socket)

	r.GET("/items", h.Listings.GetAll)
	r.GET("/items/:id", h.Listings.Get)
	r.POST("/items", h.Listings.Create)
	r.POST("/items/classify", h.Listings.Classify)

	r.POST("/negotiations", h.Negotiations.Start)
	r.GET("/negotiations/:id", h.Negotiations.Get)
	r.POST("/negotiations/:id/messages", h.Negotiations.Send)
	r.POST("/negotiations/:id/payment", h.Negotiations.ChoosePayment)
	r.DELETE("/negotiations/:id", h.Negotiations.Close)

	r.GET("/conversations", h.Chats.Conversations)
	r.GET("/conversations/:id/messages", h.Chats.Messages)
	r.POST("/conversations/:id/messages", h.Chats.Send)

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("request", fields...)
	}
}

func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, usecase.ErrInvalidPhase):
		return http.StatusConflict, "invalid_phase"
	case errors.Is(err, usecase.ErrTurnInFlight):
		return http.StatusConflict, "turn_in_flight"
	case errors.Is(err, usecase.ErrSessionClosed):
		return http.StatusConflict, "session_closed"
	case errors.Is(err, usecase.ErrServiceUnavailable) && gemini.IsFatal(err):
		return http.StatusBadGateway, "agent_rejected"
	case errors.Is(err, usecase.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	body := apiError{Code: code, Message: err.Error()}
	var vErr *usecase.ValidationError
	if errors.As(err, &vErr) {
		body.Field = vErr.Field
	}
	if status == http.StatusServiceUnavailable && gemini.IsTransient(err) {
		c.Header("Retry-After", retryAfterSeconds)
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal server error"
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: err.Error()})
}
