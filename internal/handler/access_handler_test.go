package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-community-api/internal/middleware"
	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type accessServiceMock struct {
	unlockResp   *models.UnlockResult
	unlockErr    error
	hasAccess    bool
	hasAccessErr error
	lastScopeID  string
	lastCode     string
	lastUserID   string
	unlockCalled bool
}

func (m *accessServiceMock) Unlock(ctx context.Context, userID, scopeID, code string) (*models.UnlockResult, error) {
	m.unlockCalled = true
	m.lastUserID = userID
	m.lastScopeID = scopeID
	m.lastCode = code
	return m.unlockResp, m.unlockErr
}

func (m *accessServiceMock) HasAccess(ctx context.Context, userID, scopeID string) (bool, error) {
	m.lastUserID = userID
	m.lastScopeID = scopeID
	return m.hasAccess, m.hasAccessErr
}

func TestAccessHandlerUnlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &accessServiceMock{unlockResp: &models.UnlockResult{Granted: true}}
	handler := NewAccessHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/scopes/scope-1/unlock", bytes.NewBufferString(`{"access_code":"SECRET9"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "scope-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Unlock(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.unlockCalled)
	assert.Equal(t, "user-1", mockSvc.lastUserID)
	assert.Equal(t, "scope-1", mockSvc.lastScopeID)
	assert.Equal(t, "SECRET9", mockSvc.lastCode)
}

func TestAccessHandlerUnlockMissingCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &accessServiceMock{}
	handler := NewAccessHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/scopes/scope-1/unlock", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "scope-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Unlock(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.unlockCalled)
}

func TestAccessHandlerUnlockUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAccessHandler(&accessServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/scopes/scope-1/unlock", bytes.NewBufferString(`{"access_code":"SECRET9"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Unlock(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessHandlerUnlockWrongCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &accessServiceMock{unlockErr: appErrors.ErrIncorrectCode}
	handler := NewAccessHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/scopes/scope-1/unlock", bytes.NewBufferString(`{"access_code":"WRONG"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "scope-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Unlock(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccessHandlerCheckAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &accessServiceMock{hasAccess: true}
	handler := NewAccessHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/scopes/public-1/access", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "public-1"}}

	handler.Check(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mockSvc.lastUserID)

	var body struct {
		Data struct {
			HasAccess bool `json:"has_access"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasAccess)
}
