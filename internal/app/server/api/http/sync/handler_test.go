package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"offsync/internal/app/server/api/http/middleware/tenant"
	"offsync/internal/domain/replica"
	engine "offsync/internal/domain/sync"
	"offsync/internal/model"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Push(ctx context.Context, tenant string, payload engine.PushPayload) error {
	args := m.Called(ctx, tenant, payload)
	return args.Error(0)
}

func (m *MockService) Pull(ctx context.Context, tenant string, req engine.PullRequest) (*replica.Changes, error) {
	args := m.Called(ctx, tenant, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replica.Changes), args.Error(1)
}

func (m *MockService) Status(ctx context.Context, tenant string) (*replica.Status, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replica.Status), args.Error(1)
}

func newTestAPI(t *testing.T, service replica.Servicer) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	log := slog.Default()
	mws := huma.Middlewares{tenant.New(log).Middleware()}
	NewHandler(service, log, mws).SetupRoutes(api)
	return api
}

func TestHandler_Push(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		setupMock  func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "stored",
			body: map[string]any{"tableName": "User", "recordId": "u1", "action": "create", "data": map[string]any{"id": "u1"}},
			setupMock: func(m *MockService) {
				m.On("Push", mock.Anything, "acme", engine.PushPayload{
					TableName: "User", RecordID: "u1", Action: engine.ActionCreate, Data: model.Entity{"id": "u1"},
				}).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"Ok"`,
		},
		{
			name: "rejected by domain",
			body: map[string]any{"tableName": "Audit", "recordId": "a1", "action": "create"},
			setupMock: func(m *MockService) {
				m.On("Push", mock.Anything, "acme", mock.Anything).
					Return(fmt.Errorf("%w: unknown table %q", replica.ErrValidation, "Audit"))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "unknown table",
		},
		{
			name:       "invalid action rejected by schema",
			body:       map[string]any{"tableName": "User", "recordId": "u1", "action": "merge"},
			setupMock:  func(m *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "storage failure",
			body: map[string]any{"tableName": "User", "recordId": "u1", "action": "delete"},
			setupMock: func(m *MockService) {
				m.On("Push", mock.Anything, "acme", mock.Anything).Return(errors.New("connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service := new(MockService)
			tt.setupMock(service)
			api := newTestAPI(t, service)

			// Act
			resp := api.Post("/api/sync/push", "X-Tenant-ID: acme", tt.body)

			// Assert
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantBody != "" {
				assert.Contains(t, resp.Body.String(), tt.wantBody)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_Pull(t *testing.T) {
	// Arrange
	service := new(MockService)
	serverTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	service.On("Pull", mock.Anything, replica.DefaultTenant, mock.MatchedBy(func(req engine.PullRequest) bool {
		return req.LastSyncAt != nil && req.LastSyncAt.Equal(since) && len(req.Tables) == 1 && req.Tables[0] == "User"
	})).Return(&replica.Changes{
		Tables:     map[string][]model.Entity{"User": {{"id": "u1", "name": "Ann"}}},
		ServerTime: serverTime,
	}, nil)
	api := newTestAPI(t, service)

	// Act
	resp := api.Post("/api/sync/pull", map[string]any{
		"lastSyncAt": since.Format(time.RFC3339),
		"tables":     []string{"User"},
	})

	// Assert
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2024-03-01T12:00:00Z", resp.Header().Get("X-Server-Time"))
	assert.Contains(t, resp.Body.String(), `"User":[{"id":"u1","name":"Ann"}]`)
	service.AssertExpectations(t)
}

func TestHandler_Status(t *testing.T) {
	service := new(MockService)
	service.On("Status", mock.Anything, "acme").Return(&replica.Status{
		Tenant: "acme", ServerTime: time.Now().UTC(), Tables: map[string]int{"User": 2},
	}, nil)
	api := newTestAPI(t, service)

	resp := api.Get("/api/sync/status", "X-Tenant-ID: acme")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"tables":{"User":2}`)
	assert.Contains(t, resp.Body.String(), `"tenant":"acme"`)
}

func TestHandler_InvalidTenant(t *testing.T) {
	service := new(MockService)
	api := newTestAPI(t, service)

	resp := api.Get("/api/sync/status", "X-Tenant-ID: ../etc")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	service.AssertNotCalled(t, "Status", mock.Anything, mock.Anything)
}
