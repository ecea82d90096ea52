package app_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/internal/services/dto"
	"roastmarket_backend/pkg/apperrors"
	"roastmarket_backend/test/helpers"
)

type errorBody struct {
	Error struct {
		Code    apperrors.ErrorCode `json:"code"`
		Message string              `json:"message"`
	} `json:"error"`
}

func TestAPI_Healthz(t *testing.T) {
	s := newTestServer(t, nil)

	var body map[string]string
	require.Equal(t, http.StatusOK, s.request(t, http.MethodGet, "/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_Authorization(t *testing.T) {
	s := newTestServer(t, nil)
	buyerToken := helpers.IssueToken(t, buyerID, auth.RoleBuyer)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
		code   apperrors.ErrorCode
	}{
		{"missing token", http.MethodGet, "/api/v1/notifications", "", http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/notifications", "not-a-jwt", http.StatusUnauthorized, apperrors.CodeInvalidToken},
		{"non-admin create", http.MethodPost, "/api/v1/admin/notifications", buyerToken, http.StatusForbidden, apperrors.CodeForbidden},
		{"non-admin stats", http.MethodGet, "/api/v1/admin/realtime/stats", buyerToken, http.StatusForbidden, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			require.Equal(t, tt.want, s.request(t, tt.method, tt.path, tt.token, nil, &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestAPI_NotificationOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	owned := helpers.CreateNotification(t, s.db, buyerID, "Beans roasted")
	buyerToken := helpers.IssueToken(t, buyerID, auth.RoleBuyer)
	otherToken := helpers.IssueToken(t, "buyer-2", auth.RoleBuyer)

	var body errorBody
	require.Equal(t, http.StatusNotFound,
		s.request(t, http.MethodGet, "/api/v1/notifications/does-not-exist", buyerToken, nil, &body))
	assert.Equal(t, apperrors.CodeNotFound, body.Error.Code)

	require.Equal(t, http.StatusForbidden,
		s.request(t, http.MethodPut, "/api/v1/notifications/"+owned.ID+"/read", otherToken, nil, &body))
	assert.Equal(t, apperrors.CodeForbidden, body.Error.Code)

	require.Equal(t, http.StatusNoContent,
		s.request(t, http.MethodDelete, "/api/v1/notifications/"+owned.ID, buyerToken, nil, nil))
	require.Equal(t, http.StatusNotFound,
		s.request(t, http.MethodGet, "/api/v1/notifications/"+owned.ID, buyerToken, nil, nil))
}

func TestAPI_CreateNotificationValidation(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := helpers.IssueToken(t, adminID, auth.RoleAdmin)

	var body errorBody
	status := s.request(t, http.MethodPost, "/api/v1/admin/notifications", adminToken, dto.CreateNotificationRequest{
		UserID: buyerID,
		Type:   "carrier_pigeon",
		Title:  "Nope",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidationFailed, body.Error.Code)
}

func TestAPI_TrackingRequiresParticipation(t *testing.T) {
	s := newTestServer(t, nil)
	order := helpers.CreateOrder(t, s.db, buyerID, roasterID)
	buyerToken := helpers.IssueToken(t, buyerID, auth.RoleBuyer)
	strangerToken := helpers.IssueToken(t, "stranger", auth.RoleBuyer)

	require.Equal(t, http.StatusForbidden,
		s.request(t, http.MethodGet, "/api/v1/orders/"+order.ID+"/tracking", strangerToken, nil, nil))
	require.Equal(t, http.StatusNotFound,
		s.request(t, http.MethodGet, "/api/v1/orders/missing/tracking", buyerToken, nil, nil))

	// buyers follow orders but never write to them
	require.Equal(t, http.StatusForbidden, s.request(t, http.MethodPut, "/api/v1/orders/"+order.ID+"/status", buyerToken,
		dto.UpdateOrderStatusRequest{Status: string(models.OrderStatusShipped)}, nil))
}

func TestAPI_RealtimeStats(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := helpers.IssueToken(t, adminID, auth.RoleAdmin)
	buyerToken := helpers.IssueToken(t, buyerID, auth.RoleBuyer)

	conn := s.dialAuthenticated(t, buyerID, buyerToken)
	subscribeNotifications(t, conn)

	var stats struct {
		Connections      int `json:"connections"`
		Authenticated    int `json:"authenticated"`
		NotificationSubs int `json:"notification_subscriptions"`
	}
	require.Equal(t, http.StatusOK, s.request(t, http.MethodGet, "/api/v1/admin/realtime/stats", adminToken, nil, &stats))
	assert.Equal(t, 1, stats.Connections)
	assert.Equal(t, 1, stats.Authenticated)
	assert.Equal(t, 1, stats.NotificationSubs)
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t, prometheus.NewRegistry())
	buyerToken := helpers.IssueToken(t, buyerID, auth.RoleBuyer)

	require.Equal(t, http.StatusOK, s.request(t, http.MethodGet, "/api/v1/notifications", buyerToken, nil, nil))

	resp, err := s.http.Client().Get(s.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "roastmarket_http_request_duration_seconds")
	assert.Contains(t, string(body), "roastmarket_realtime_connections")
}

func TestAPI_MetricsDisabledWithoutRegistry(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := s.http.Client().Get(s.http.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CleanupRequiresDays(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := helpers.IssueToken(t, adminID, auth.RoleAdmin)

	var body errorBody
	require.Equal(t, http.StatusBadRequest,
		s.request(t, http.MethodDelete, "/api/v1/admin/notifications/cleanup", adminToken, nil, &body))
	assert.Equal(t, apperrors.CodeValidationFailed, body.Error.Code)

	var result struct {
		Deleted int64 `json:"deleted"`
	}
	require.Equal(t, http.StatusOK,
		s.request(t, http.MethodDelete, "/api/v1/admin/notifications/cleanup?days=30", adminToken, nil, &result))
	assert.Zero(t, result.Deleted)
}
