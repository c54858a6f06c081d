package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/server"
)

// apiClient talks to a running finbot server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/") + server.APIPrefix,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *apiClient) do(method, path string, body interface{}, wantStatus int, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErrorMessage(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiErrorMessage extracts the error message from a JSON error body, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	return strings.TrimSpace(string(body))
}

func (c *apiClient) chat(message, userID string) (*models.ChatResponse, error) {
	var out models.ChatResponse
	err := c.do(http.MethodPost, "/chat", models.ChatRequest{Message: message, UserID: userID}, http.StatusOK, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) status(adminKey string) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(http.MethodGet, "/documents/status?admin_key="+url.QueryEscape(adminKey), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) clearAll(adminKey string) (*models.ClearResponse, error) {
	var out models.ClearResponse
	if err := c.do(http.MethodDelete, "/documents/clear-all?admin_key="+url.QueryEscape(adminKey), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) watchList(adminKey string) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(http.MethodGet, "/watch/directories?admin_key="+url.QueryEscape(adminKey), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func (c *apiClient) watchAdd(adminKey, path string, syncExisting bool) error {
	body := map[string]interface{}{"path": path, "sync": syncExisting}
	return c.do(http.MethodPost, "/watch/directories?admin_key="+url.QueryEscape(adminKey), body, http.StatusCreated, nil)
}

func (c *apiClient) watchRemove(adminKey, path string) error {
	q := url.Values{"admin_key": {adminKey}, "path": {path}}
	return c.do(http.MethodDelete, "/watch/directories?"+q.Encode(), nil, http.StatusOK, nil)
}
