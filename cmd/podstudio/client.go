package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podstudio/internal/api"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base  string
	token string
	user  string
	http  *http.Client
}

func newClient(opts *cliOptions) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(opts.server, "/"),
		token: opts.token,
		user:  opts.user,
		http:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *apiClient) do(method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-User-ID", c.user)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.Error
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) getJSON(path string, out any) error {
	return c.do(http.MethodGet, path, nil, "", out)
}

func (c *apiClient) postJSON(path string, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(http.MethodPost, path, body, contentType, out)
}

func (c *apiClient) putJSON(path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(http.MethodPut, path, bytes.NewReader(data), "application/json", out)
}

func (c *apiClient) delete(path string, out any) error {
	return c.do(http.MethodDelete, path, nil, "", out)
}

// uploadFile posts a local audio file as a multipart form.
func (c *apiClient) uploadFile(path, localPath, name string, out any) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return c.do(http.MethodPost, path, &buf, writer.FormDataContentType(), out)
}
