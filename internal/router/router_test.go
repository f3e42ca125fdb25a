package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"ripsnc/internal/domain"
	"ripsnc/internal/handler"
	"ripsnc/internal/router"
	"ripsnc/mocks"
)

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func setup(db handler.Pinger) (*gin.Engine, *mocks.MockSessionService) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	sessSvc := new(mocks.MockSessionService)
	r := router.Setup(
		log,
		[]string{"http://localhost:3000"},
		handler.NewSessionHandler(sessSvc, 1<<20, log),
		handler.NewCreditNoteHandler(new(mocks.MockCreditNoteService), new(mocks.MockSubmissionService), 1<<20, log),
		handler.NewHealthHandler(db),
	)
	return r, sessSvc
}

func TestRouter_Health(t *testing.T) {
	r, _ := setup(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ReadinessFailsWithoutDatabase(t *testing.T) {
	r, _ := setup(failingPinger{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_SessionRoutes(t *testing.T) {
	r, sessSvc := setup(nil)
	id := uuid.New()
	sessSvc.On("List", mock.Anything).Return([]domain.SessionInfo{{ID: id}}, nil)
	sessSvc.On("Get", mock.Anything, id).Return(&domain.Session{ID: id}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id.String(), http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	sessSvc.AssertExpectations(t)
}

func TestRouter_Preflight(t *testing.T) {
	r, _ := setup(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
