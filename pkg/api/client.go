package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"air-analyzer/pkg/logger"
)

// Backend routes, relative to address:port
const (
	RouteLogin           = "api/user/login"
	RouteRoomActivation  = "api/room/changeStatusActivation"
	RouteRoomLocalIP     = "api/room/changeLocalIP"
	RouteMeasurementsSet = "api/measure/set"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"

	maxResponseBody = 64 << 10
)

// response is the status and body of one backend call
type response struct {
	status int
	body   []byte
}

// formBody encodes key/value pairs keeping their order
func formBody(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pairs[i]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pairs[i+1]))
	}
	return b.String()
}

// do performs one request against route. A transport failure is returned as
// an error; any HTTP status is returned in the response.
func (m *Manager) do(ctx context.Context, method, route string, token *Token, contentType string, body []byte) (response, error) {
	endpoint := m.baseURL + "/" + route
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return response{}, err
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)
	if contentType == contentTypeJSON {
		req.Header.Set("Accept", contentTypeJSON)
	}
	if token != nil {
		req.Header.Set("Authorization", token.Authorization())
	}

	resp, err := m.client.Do(req)
	if err != nil {
		logger.LogDebug("🌐 %s %s [%s] failed: %v", method, route, requestID, err)
		return response{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return response{status: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}

	logger.LogDebug("🌐 %s %s [%s]: %d", method, route, requestID, resp.StatusCode)
	return response{status: resp.StatusCode, body: payload}, nil
}

func (m *Manager) requestLogin(ctx context.Context) (response, error) {
	body := formBody("username", m.username, "password", m.password)
	return m.do(ctx, http.MethodPost, RouteLogin, nil, contentTypeForm, []byte(body))
}

func (m *Manager) requestRoomActivation(ctx context.Context, token Token) (response, error) {
	body := formBody("number", fmt.Sprint(m.RoomNumber()), "is_active", "1")
	return m.do(ctx, http.MethodPatch, RouteRoomActivation, &token, contentTypeForm, []byte(body))
}

func (m *Manager) requestRoomLocalIP(ctx context.Context, token Token, localIP string) (response, error) {
	body := formBody("number", fmt.Sprint(m.RoomNumber()), "local_ip", localIP)
	return m.do(ctx, http.MethodPatch, RouteRoomLocalIP, &token, contentTypeForm, []byte(body))
}

func (m *Manager) requestMeasurementsSet(ctx context.Context, token Token, payload []byte) (response, error) {
	return m.do(ctx, http.MethodPost, RouteMeasurementsSet, &token, contentTypeJSON, payload)
}
