package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormscout-backend/dao"
	"dormscout-backend/model"
	"dormscout-backend/pkg/gemini"
	"dormscout-backend/pkg/notify"
	"dormscout-backend/usecase"
)

type cannedSession struct {
	mu      sync.Mutex
	replies []string
}

func (s *cannedSession) Send(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", errors.New("no reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type cannedAgent struct {
	replies []string
}

func (a *cannedAgent) StartChat(context.Context, string, []gemini.Tool) (gemini.Session, error) {
	return &cannedSession{replies: append([]string{}, a.replies...)}, nil
}

type failingAgent struct{ err error }

func (a failingAgent) StartChat(context.Context, string, []gemini.Tool) (gemini.Session, error) {
	return nil, a.err
}

type testServer struct {
	router *gin.Engine
	inbox  *notify.Inbox
}

func newTestServer(t *testing.T, agent usecase.ChatAgent) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := dao.NewMemoryStore()
	listingRepo := dao.NewListingRepository(store)
	userRepo := dao.NewUserRepository(store)

	inbox, err := notify.NewInbox(1<<10, time.Minute)
	require.NoError(t, err)
	t.Cleanup(inbox.Close)
	hub := notify.NewHub(nil)

	matcher := usecase.NewMatchUsecase(userRepo, notify.Multi{inbox, hub}, 5*time.Second, nil)
	router := NewRouter(Handlers{
		Listings:      NewListingController(usecase.NewListingUsecase(listingRepo, nil, nil, matcher, nil)),
		Negotiations:  NewNegotiationController(usecase.NewNegotiationUsecase(agent, nil, listingRepo, userRepo, "dormscout@upi", nil)),
		Users:         NewUserController(usecase.NewUserUsecase(userRepo, "@muj.manipal.edu", decimal.NewFromInt(5000), nil)),
		Chats:         NewChatController(usecase.NewChatUsecase(dao.NewMessageRepository(store))),
		Notifications: NewNotificationController(inbox, hub),
	}, "*", nil)
	return &testServer{router: router, inbox: inbox}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) login(t *testing.T, email string) model.UserProfile {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/login", gin.H{"email": email, "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[model.UserProfile](t, w)
}

func (s *testServer) postItem(t *testing.T, sellerID string) model.Listing {
	t.Helper()
	w := s.do(t, http.MethodPost, "/items", gin.H{
		"title":     "Study Chair",
		"price":     1500,
		"type":      "WTS",
		"seller_id": sellerID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Listing](t, w)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dormscout_wishlist_matches_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodOptions, "/items", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRouter_Items(t *testing.T) {
	s := newTestServer(t, nil)
	seller := s.login(t, "ravi@muj.manipal.edu")

	w := s.do(t, http.MethodGet, "/items", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	item := s.postItem(t, seller.ID)
	assert.Equal(t, "Electronics", item.Category)
	assert.Equal(t, 1, item.InterestedSellersCount)
	assert.False(t, item.IsVerified)

	w = s.do(t, http.MethodGet, "/items/"+item.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, item.ID, decode[model.Listing](t, w).ID)

	w = s.do(t, http.MethodGet, "/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[apiError](t, w).Code)

	w = s.do(t, http.MethodPost, "/items", gin.H{"title": "Lamp", "price": "cheap", "type": "WTS", "seller_id": seller.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[apiError](t, w)
	assert.Equal(t, "validation_failed", body.Code)
	assert.Equal(t, "price", body.Field)

	w = s.do(t, http.MethodPost, "/items", gin.H{"title": "Lamp", "price": 10, "type": "WTS", "seller_id": seller.ID, "image": "data:image/png;base64,%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "image", decode[apiError](t, w).Field)

	w = s.do(t, http.MethodPost, "/items/classify", gin.H{"message": "selling my cycle"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"category":"NOISE"}`, w.Body.String())
}

func TestRouter_Login(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "asha@gmail.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode[apiError](t, w).Field)

	s.login(t, "asha@muj.manipal.edu")
	w = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "asha@muj.manipal.edu", "password": "other"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "asha@muj.manipal.edu"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decode[apiError](t, w).Code)
}

func TestRouter_WishlistMatchNotification(t *testing.T) {
	s := newTestServer(t, nil)
	seller := s.login(t, "ravi@muj.manipal.edu")
	buyer := s.login(t, "asha@muj.manipal.edu")

	w := s.do(t, http.MethodPost, "/users/"+buyer.ID+"/wishlist", gin.H{"item_name": "chair", "max_price": 2000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	item := s.postItem(t, seller.ID)

	w = s.do(t, http.MethodGet, "/users/"+buyer.ID+"/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]model.WishlistMatch](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, item.ID, pending[0].ListingID)

	w = s.do(t, http.MethodGet, "/users/"+seller.ID+"/notifications", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/ws/notifications", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_NegotiationFlow(t *testing.T) {
	s := newTestServer(t, &cannedAgent{replies: []string{
		"Hi Ravi! Would you take ₹1000 for the chair?",
		"Great, ₹1300 it is. AGREED_PRICE: 1300",
	}})
	seller := s.login(t, "ravi@muj.manipal.edu")
	buyer := s.login(t, "asha@muj.manipal.edu")
	item := s.postItem(t, seller.ID)

	w := s.do(t, http.MethodPost, "/negotiations", gin.H{"user_id": buyer.ID, "listing_id": item.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[usecase.NegotiationView](t, w)
	assert.Equal(t, model.PhaseChatting, view.Phase)
	require.Len(t, view.Transcript, 1)

	w = s.do(t, http.MethodPost, "/negotiations/"+view.ID+"/payment", gin.H{"method": "Cash"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_phase", decode[apiError](t, w).Code)

	w = s.do(t, http.MethodPost, "/negotiations/"+view.ID+"/messages", gin.H{"text": "1300 and it's yours"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[usecase.NegotiationView](t, w)
	assert.Equal(t, model.PhaseAgreed, view.Phase)
	require.NotNil(t, view.AgreedPrice)
	assert.Equal(t, int64(1300), *view.AgreedPrice)

	w = s.do(t, http.MethodPost, "/negotiations/"+view.ID+"/payment", gin.H{"method": "Card"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/negotiations/"+view.ID+"/payment", gin.H{"method": "Cash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[usecase.NegotiationView](t, w)
	assert.Equal(t, model.PhasePayment, view.Phase)
	require.NotNil(t, view.Payment)
	assert.Equal(t, int64(1300), view.Payment.Amount)

	w = s.do(t, http.MethodGet, "/users/"+buyer.ID+"/deals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	deals := decode[[]model.Deal](t, w)
	require.Len(t, deals, 1)
	assert.Equal(t, model.DealBought, deals[0].Type)

	w = s.do(t, http.MethodDelete, "/negotiations/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/negotiations/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_NegotiationWithoutAgent(t *testing.T) {
	s := newTestServer(t, nil)
	seller := s.login(t, "ravi@muj.manipal.edu")
	buyer := s.login(t, "asha@muj.manipal.edu")
	item := s.postItem(t, seller.ID)

	w := s.do(t, http.MethodPost, "/negotiations", gin.H{"user_id": buyer.ID, "listing_id": item.ID})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"), "retrying cannot help without an agent")

	w = s.do(t, http.MethodPost, "/negotiations", gin.H{"user_id": buyer.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Conversations(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/conversations/t1/messages", gin.H{
		"sender_id": "asha", "sender_name": "Asha", "participant_name": "Ravi", "text": "still available?",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/conversations", nil)
	convs := decode[[]model.Conversation](t, w)
	require.Len(t, convs, 1)
	assert.Equal(t, "still available?", convs[0].LastMessage)

	w = s.do(t, http.MethodGet, "/conversations/t1/messages", nil)
	assert.Len(t, decode[[]model.Message](t, w), 1)
}

func TestRouter_AgentFailureClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{"rate limited", gemini.NewTransientError(errors.New("429 quota")), http.StatusServiceUnavailable, "service_unavailable", retryAfterSeconds},
		{"bad key", gemini.NewFatalError(errors.New("API key not valid")), http.StatusBadGateway, "agent_rejected", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, failingAgent{err: tt.err})
			seller := s.login(t, "ravi@muj.manipal.edu")
			buyer := s.login(t, "asha@muj.manipal.edu")
			item := s.postItem(t, seller.ID)

			w := s.do(t, http.MethodPost, "/negotiations", gin.H{"user_id": buyer.ID, "listing_id": item.ID})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[apiError](t, w).Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func TestRouter_SessionEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	user := s.login(t, "asha@muj.manipal.edu")
	w = s.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode[model.UserProfile](t, w).ID)

	w = s.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
