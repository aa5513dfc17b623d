package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"offsync/internal/app/client/config"
	"offsync/internal/domain/sync"
	"offsync/internal/model"
)

const (
	headerTenant     = "X-Tenant-ID"
	headerServerTime = "X-Server-Time"
)

// httpClient транспорт движка синхронизации поверх HTTP API сервера
type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	tenant    string
	userAgent string
}

var _ sync.Transport = (*httpClient)(nil)

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log,
		baseURL:   cfg.ServerURL(),
		tenant:    cfg.TenantID,
		userAgent: "offsync-client/1.0",
	}
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

// Push отправляет одно изменение очереди
func (h *httpClient) Push(ctx context.Context, payload sync.PushPayload) error {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/sync/push", payload)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

// Pull запрашивает изменения после курсора
func (h *httpClient) Pull(ctx context.Context, req sync.PullRequest) (*sync.PullResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/sync/pull", req)
	if err != nil {
		return nil, err
	}

	serverTime := parseServerTime(resp.Header.Get(headerServerTime))

	var tables map[string][]model.Entity
	if err := h.parseResponse(resp, &tables); err != nil {
		return nil, err
	}

	return &sync.PullResponse{Tables: tables, ServerTime: serverTime}, nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.tenant != "" {
		req.Header.Set(headerTenant, h.tenant)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("сервер недоступен: %w", err)
	}

	return resp, nil
}

// parseResponse закрывает тело. Ответ с ошибкой превращается в *sync.RemoteError.
func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	if resp.StatusCode >= 400 {
		return &sync.RemoteError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}

// errorMessage текст ошибки из тела: detail (huma), error, иначе тело целиком
func errorMessage(body []byte) string {
	var errResp struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Detail != "" {
			return errResp.Detail
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func parseServerTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
