package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "UGCMIGRATE_HTTP_TIMEOUT"
	adminTokenEnvKey   = "UGCMIGRATE_ADMIN_TOKEN"

	// ScoreImportPath is the score upload endpoint.
	ScoreImportPath = "/services/social/scores/simple-import"
)

// Client is a simple HTTP client for the ugcmigrate API.
type Client struct {
	baseURL    string
	http       *http.Client
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) Rewrite(ctx context.Context, req RewriteRequest) (RewriteResponse, error) {
	var resp RewriteResponse
	err := c.do(ctx, http.MethodPost, "/v1/rewrite", nil, req, &resp)
	return resp, err
}

func (c *Client) ImportAsset(ctx context.Context, req AssetImportRequest) (AssetImportResponse, error) {
	var resp AssetImportResponse
	err := c.do(ctx, http.MethodPost, "/v1/assets/import", nil, req, &resp)
	return resp, err
}

func (c *Client) ListAssets(ctx context.Context, folder string) ([]NodeResponse, error) {
	var resp []NodeResponse
	query := url.Values{}
	if folder != "" {
		query.Set("folder", folder)
	}
	err := c.do(ctx, http.MethodGet, "/v1/assets", query, nil, &resp)
	return resp, err
}

func (c *Client) ListScores(ctx context.Context, userID string) ([]ScoreResponse, error) {
	var resp []ScoreResponse
	query := url.Values{}
	if userID != "" {
		query.Set("user", userID)
	}
	err := c.do(ctx, http.MethodGet, "/v1/scores", query, nil, &resp)
	return resp, err
}

// ImportScores uploads a score file as multipart form data.
func (c *Client) ImportScores(ctx context.Context, filename string, scores io.Reader, targetPath, rulePath string) (ScoreImportResponse, error) {
	var resp ScoreImportResponse

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("path", targetPath); err != nil {
		return resp, err
	}
	if err := writer.WriteField("scoringRule", rulePath); err != nil {
		return resp, err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, scores); err != nil {
		return resp, err
	}
	if err := writer.Close(); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ScoreImportPath, &body)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAdminHeader(httpReq)

	err = c.send(httpReq, &resp)
	return resp, err
}

// BlobGC runs blob garbage collection. apply=false is a dry run.
func (c *Client) BlobGC(ctx context.Context, apply bool) (BlobGCResponse, error) {
	var resp BlobGCResponse
	endpoint := c.baseURL + "/v1/admin/gc"
	if apply {
		endpoint += "?apply=true"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return resp, err
	}
	if apply {
		httpReq.Header.Set("X-Confirm", "true")
	}
	c.setAdminHeader(httpReq)

	err = c.send(httpReq, &resp)
	return resp, err
}

// FetchContent streams the bytes of a file node to w.
func (c *Client) FetchContent(ctx context.Context, nodePath string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+escapeNodePath(nodePath), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
			RequestID: resp.Header.Get("X-Request-Id"),
		}
	}
	return &APIError{Status: resp.StatusCode}
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.adminToken)
}

func escapeNodePath(nodePath string) string {
	segments := strings.Split(strings.TrimPrefix(nodePath, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(segments, "/")
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
