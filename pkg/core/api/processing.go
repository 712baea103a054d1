// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MerLin027/PaperSynth/pkg/core/schema"
)

// Backend routes. Exact paths matter for interoperability; the trailing
// slash on the process route is intentional.
const (
	processPaperPath = "/process-paper/"
	healthPath       = "/health"
	statusPathPrefix = "/status/"
)

// ProcessPaper uploads a paper and runs the full pipeline. Optional settings
// that are unset are omitted from the multipart body, never sent as null.
// The call is attempted exactly once and may run for minutes.
func (c *Client) ProcessPaper(ctx context.Context, req *schema.ProcessingRequest) (*schema.ProcessResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", req.Upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(req.Upload.Content); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	if req.SummaryLength != "" {
		if err := writer.WriteField("summary_length", string(req.SummaryLength)); err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if req.GenerateVisual != nil {
		if err := writer.WriteField("generate_visual", strconv.FormatBool(*req.GenerateVisual)); err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if req.GenerateAudio != nil {
		if err := writer.WriteField("generate_audio", strconv.FormatBool(*req.GenerateAudio)); err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if req.Preset != "" {
		if err := writer.WriteField("sdxl_preset", string(req.Preset)); err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, processPaperPath, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(httpReq)
	if err != nil {
		c.logger.Debug("process paper failed",
			"file", req.Upload.Filename,
			"size", req.Upload.Size,
			"error", err)
		return nil, err
	}
	defer resp.Body.Close()

	var result schema.ProcessResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal process result: %w", err)
	}
	return &result, nil
}

// CheckHealth fetches the backend's health report.
func (c *Client) CheckHealth(ctx context.Context) (*schema.HealthStatus, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return nil, wrapOp("Health check failed: ", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, wrapOp("Health check failed: ", err)
	}
	defer resp.Body.Close()

	var status schema.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, wrapOp("Health check failed: ", err)
	}
	return &status, nil
}

// GetStatus fetches the asset URLs recorded so far for a request. The
// backend keeps no progress state beyond file existence.
func (c *Client) GetStatus(ctx context.Context, requestID string) (*schema.StatusResult, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, statusPathPrefix+url.PathEscape(requestID), nil)
	if err != nil {
		return nil, wrapOp("Status check failed: ", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, wrapOp("Status check failed: ", err)
	}
	defer resp.Body.Close()

	var status schema.StatusResult
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, wrapOp("Status check failed: ", err)
	}
	return &status, nil
}

// FetchAsset retrieves a generated artifact. An absolute URL is fetched
// directly; a relative path goes through the authenticated client so the
// bearer credential is carried. Returns the content and its content type.
func (c *Client) FetchAsset(ctx context.Context, assetURL string) ([]byte, string, error) {
	var resp *http.Response

	if isAbsoluteURL(assetURL) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
		if err != nil {
			return nil, "", wrapOp("Download failed: ", err)
		}
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, "", wrapOp("Download failed: ", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			resp.Body.Close()
			return nil, "", wrapOp("Download failed: ", decodeError(resp, body))
		}
	} else {
		path := assetURL
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, "", wrapOp("Download failed: ", err)
		}
		resp, err = c.do(req)
		if err != nil {
			return nil, "", wrapOp("Download failed: ", err)
		}
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", wrapOp("Download failed: ", err)
	}
	return content, resp.Header.Get("Content-Type"), nil
}

// DownloadFile fetches an asset and writes it to dest. The write goes
// through a temp file that is renamed on success and removed on every
// failure path, so a broken download never leaves a partial dest behind.
func (c *Client) DownloadFile(ctx context.Context, assetURL, dest string) error {
	content, _, err := c.FetchAsset(ctx, assetURL)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return wrapOp("Download failed: ", err)
		}
	}

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return wrapOp("Download failed: ", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return wrapOp("Download failed: ", err)
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
