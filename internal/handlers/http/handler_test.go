package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Nazarious-ucu/weather-line-bot/internal/conversation"
	handlers "github.com/Nazarious-ucu/weather-line-bot/internal/handlers/http"
	"github.com/Nazarious-ucu/weather-line-bot/internal/metrics"
	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Handle(ctx context.Context, ev models.InboundEvent) (conversation.Outcome, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(conversation.Outcome), args.Error(1)
}

const twoEvents = `{"events":[
  {"type":"message","replyToken":"rt1","source":{"userId":"U1"},"message":{"type":"text","text":"Tokyo"}},
  {"type":"message","replyToken":"rt2","source":{"userId":"U2"},"message":{"type":"text","text":"hello"}}
]}`

func setupRouter(engine *mockEngine, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers.RequestLogger(zerolog.Nop()))

	h := handlers.NewHandler(engine, secret, zerolog.Nop(), metrics.NewMetrics("test"))
	r.POST("/webhook", h.Webhook)
	r.GET("/healthz", h.Healthz)
	return r
}

func post(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_ProcessesEventsInOrder(t *testing.T) {
	engine := &mockEngine{}
	t.Cleanup(func() { engine.AssertExpectations(t) })

	var order []string
	engine.On("Handle", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(1).(models.InboundEvent).ReplyToken)
		}).
		Return(conversation.OutcomeDateMenu, nil).Twice()

	rec := post(setupRouter(engine, ""), twoEvents, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Success"}`, rec.Body.String())
	assert.Equal(t, []string{"rt1", "rt2"}, order)
	assert.NotEmpty(t, rec.Header().Get(handlers.RequestIDHeader))
}

func TestWebhook_InboundFields(t *testing.T) {
	engine := &mockEngine{}
	t.Cleanup(func() { engine.AssertExpectations(t) })

	engine.On("Handle", mock.Anything, models.InboundEvent{
		EventType:    "message",
		MessageType:  "text",
		SubscriberID: "U1",
		Text:         "Tokyo",
		ReplyToken:   "rt1",
	}).Return(conversation.OutcomeDateMenu, nil).Once()

	body := `{"events":[{"type":"message","replyToken":"rt1","source":{"userId":"U1"},"message":{"type":"text","text":"Tokyo"}}]}`
	rec := post(setupRouter(engine, ""), body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_FirstFailureAborts(t *testing.T) {
	engine := &mockEngine{}
	t.Cleanup(func() { engine.AssertExpectations(t) })

	engine.On("Handle", mock.Anything, mock.Anything).
		Return(conversation.OutcomeWeatherReport, errors.New("weather down")).Once()

	rec := post(setupRouter(engine, ""), twoEvents, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	engine.AssertNumberOfCalls(t, "Handle", 1)
}

func TestWebhook_MalformedJSON(t *testing.T) {
	engine := &mockEngine{}

	rec := post(setupRouter(engine, ""), `{"events": [`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	engine.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestWebhook_OversizedBody(t *testing.T) {
	engine := &mockEngine{}

	body := `{"events":[],"pad":"` + strings.Repeat("x", 1<<20) + `"}`
	rec := post(setupRouter(engine, ""), body, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"Request Entity Too Large"}`, rec.Body.String())
	engine.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestWebhook_EmptyEvents(t *testing.T) {
	engine := &mockEngine{}

	rec := post(setupRouter(engine, ""), `{"events":[]}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestWebhook_Signature(t *testing.T) {
	const secret = "channel-secret"
	body := `{"events":[]}`

	cases := []struct {
		name     string
		headers  map[string]string
		wantCode int
	}{
		{"valid", map[string]string{handlers.SignatureHeader: handlers.Sign(secret, []byte(body))}, http.StatusOK},
		{"wrong", map[string]string{handlers.SignatureHeader: handlers.Sign("other", []byte(body))}, http.StatusUnauthorized},
		{"not base64", map[string]string{handlers.SignatureHeader: "%%%"}, http.StatusUnauthorized},
		{"missing", nil, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := &mockEngine{}
			rec := post(setupRouter(engine, secret), body, tc.headers)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	r := setupRouter(&mockEngine{}, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r := setupRouter(&mockEngine{}, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(handlers.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(handlers.RequestIDHeader))
}
