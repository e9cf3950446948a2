package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"podstudio/internal/api"
	"podstudio/internal/config"
	"podstudio/internal/logging"
	"podstudio/internal/store"
	"podstudio/internal/testsupport"
)

type testHarness struct {
	cfg    *config.Config
	store  *store.Store
	engine *testsupport.FakeEngine
	daemon *Daemon
	server *httptest.Server
}

func newTestHarness(t *testing.T, opts ...testsupport.ConfigOption) *testHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	engine := testsupport.NewFakeEngine()
	d, err := newDaemon(cfg, st, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	server := httptest.NewServer(d.api.server.Handler)
	t.Cleanup(server.Close)
	return &testHarness{cfg: cfg, store: st, engine: engine, daemon: d, server: server}
}

func (h *testHarness) request(t *testing.T, user, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do %s %s: %v", method, path, err)
	}
	return resp
}

func (h *testHarness) requestJSON(t *testing.T, user, method, path string, payload, out any) int {
	t.Helper()
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	resp := h.request(t, user, method, path, body, contentType)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (h *testHarness) uploadSegment(t *testing.T, user string, episodeID int64, name, filename, content string) (api.Segment, int) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("part write: %v", err)
	}
	writer.Close()

	resp := h.request(t, user, http.MethodPost, fmt.Sprintf("/api/episodes/%d/segments", episodeID), &buf, writer.FormDataContentType())
	defer resp.Body.Close()
	var segment api.Segment
	if resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&segment); err != nil {
			t.Fatalf("decode segment: %v", err)
		}
	}
	return segment, resp.StatusCode
}

func (h *testHarness) createEpisode(t *testing.T, user, title string) api.Episode {
	t.Helper()
	var episode api.Episode
	status := h.requestJSON(t, user, http.MethodPost, "/api/episodes", api.CreateEpisodeRequest{Title: title}, &episode)
	if status != http.StatusCreated {
		t.Fatalf("create episode: status %d", status)
	}
	return episode
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	h := newTestHarness(t)

	req, _ := http.NewRequest(http.MethodGet, h.server.URL+"/api/status", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, h.server.URL+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no user header: expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthRejectsUnsafeUserIDs(t *testing.T) {
	h := newTestHarness(t)

	// The identity becomes a path component under the library root, so
	// traversal shapes never reach a handler.
	for _, user := range []string{"..", "../sneak", "a/b", `a\b`, "global"} {
		resp := h.request(t, user, http.MethodGet, "/api/status", nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("user %q: expected 401, got %d", user, resp.StatusCode)
		}
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	h := newTestHarness(t)

	resp := h.request(t, "alice", http.MethodGet, "/api/episodes/999", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var envelope api.Error
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" || envelope.Error.Message == "" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}

	authResp := h.request(t, "", http.MethodGet, "/api/status", nil, "")
	defer authResp.Body.Close()
	if authResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", authResp.StatusCode)
	}
	var authEnvelope api.Error
	if err := json.NewDecoder(authResp.Body).Decode(&authEnvelope); err != nil {
		t.Fatalf("decode auth envelope: %v", err)
	}
	if authEnvelope.Error.Code != "unauthorized" || authEnvelope.Error.Message == "" {
		t.Fatalf("unexpected auth envelope: %+v", authEnvelope)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestHarness(t)
	var status api.Status
	if code := h.requestJSON(t, "alice", http.MethodGet, "/api/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if status.DatabasePath != h.cfg.DatabasePath() {
		t.Fatalf("unexpected database path %q", status.DatabasePath)
	}
	if status.Transcription {
		t.Fatal("transcription must be unconfigured in tests")
	}
}

func TestEpisodeLifecycle(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")

	var fetched api.Episode
	if code := h.requestJSON(t, "alice", http.MethodGet, fmt.Sprintf("/api/episodes/%d", episode.ID), nil, &fetched); code != http.StatusOK {
		t.Fatalf("get: status %d", code)
	}
	if fetched.Title != "pilot" {
		t.Fatalf("unexpected title %q", fetched.Title)
	}

	if code := h.requestJSON(t, "bob", http.MethodGet, fmt.Sprintf("/api/episodes/%d", episode.ID), nil, nil); code != http.StatusNotFound {
		t.Fatalf("foreign get: expected 404, got %d", code)
	}

	var list api.EpisodeList
	if code := h.requestJSON(t, "alice", http.MethodGet, "/api/episodes", nil, &list); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if len(list.Episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(list.Episodes))
	}

	if code := h.requestJSON(t, "alice", http.MethodDelete, fmt.Sprintf("/api/episodes/%d", episode.ID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
}

func TestCreateEpisodeValidation(t *testing.T) {
	h := newTestHarness(t)
	if code := h.requestJSON(t, "alice", http.MethodPost, "/api/episodes", api.CreateEpisodeRequest{Title: "  "}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestSegmentUploadAndEdit(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")

	segment, status := h.uploadSegment(t, "alice", episode.ID, "intro", "intro.mp3", strings.Repeat("a", 256))
	if status != http.StatusCreated {
		t.Fatalf("upload: status %d", status)
	}
	if segment.SourceType != store.SourceRecorded {
		t.Fatalf("expected recorded segment, got %q", segment.SourceType)
	}

	start, end := 0.0, 2.0
	var edited api.Segment
	code := h.requestJSON(t, "alice", http.MethodPost,
		fmt.Sprintf("/api/episodes/%d/segments/%d/trim", episode.ID, segment.ID),
		api.TrimRequest{StartSec: &start, EndSec: &end}, &edited)
	if code != http.StatusOK {
		t.Fatalf("trim: status %d", code)
	}
	if h.engine.CallCount("trim") != 1 {
		t.Fatalf("expected one engine trim, got %d", h.engine.CallCount("trim"))
	}

	badEnd := 99.0
	code = h.requestJSON(t, "alice", http.MethodPost,
		fmt.Sprintf("/api/episodes/%d/segments/%d/trim", episode.ID, segment.ID),
		api.TrimRequest{EndSec: &badEnd}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid trim: expected 400, got %d", code)
	}
}

func TestSegmentUploadQuotaExceeded(t *testing.T) {
	h := newTestHarness(t, testsupport.WithQuota(10))
	episode := h.createEpisode(t, "alice", "pilot")

	_, status := h.uploadSegment(t, "alice", episode.ID, "big", "big.mp3", strings.Repeat("a", 256))
	if status != http.StatusInsufficientStorage {
		t.Fatalf("expected 507, got %d", status)
	}
}

func TestAttachAssetSegment(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")

	assetPath := filepath.Join(h.cfg.GlobalLibraryDir(), "jingle.mp3")
	testsupport.WriteFile(t, assetPath, 128)
	asset, err := h.daemon.registry.RegisterGlobalFile(t.Context(), assetPath)
	if err != nil {
		t.Fatalf("RegisterGlobalFile: %v", err)
	}

	var segment api.Segment
	code := h.requestJSON(t, "alice", http.MethodPost,
		fmt.Sprintf("/api/episodes/%d/segments", episode.ID),
		api.AttachAssetRequest{AssetID: asset.ID}, &segment)
	if code != http.StatusCreated {
		t.Fatalf("attach: status %d", code)
	}
	if segment.SourceType != store.SourceReusable || segment.AssetID != asset.ID {
		t.Fatalf("unexpected segment: %+v", segment)
	}
}

func TestReorderEndpoint(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")
	first, _ := h.uploadSegment(t, "alice", episode.ID, "a", "a.mp3", "aaaa")
	second, _ := h.uploadSegment(t, "alice", episode.ID, "b", "b.mp3", "bbbb")

	var list api.SegmentList
	code := h.requestJSON(t, "alice", http.MethodPut,
		fmt.Sprintf("/api/episodes/%d/segments/order", episode.ID),
		api.ReorderRequest{SegmentIDs: []int64{second.ID, first.ID}}, &list)
	if code != http.StatusOK {
		t.Fatalf("reorder: status %d", code)
	}
	if list.Segments[0].ID != second.ID {
		t.Fatalf("unexpected order: %+v", list.Segments)
	}
}

func TestTranscriptEndpoints(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")
	segment, _ := h.uploadSegment(t, "alice", episode.ID, "talk", "talk.mp3", strings.Repeat("a", 64))
	base := fmt.Sprintf("/api/episodes/%d/segments/%d/transcript", episode.ID, segment.ID)

	if code := h.requestJSON(t, "alice", http.MethodGet, base, nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing transcript: expected 404, got %d", code)
	}

	srt := "1\n00:00:01,000 --> 00:00:03,000\nfirst\n\n2\n00:00:05,000 --> 00:00:06,000\nsecond\n"
	var written api.Transcript
	if code := h.requestJSON(t, "alice", http.MethodPut, base, api.OverwriteTranscriptRequest{SRT: srt}, &written); code != http.StatusOK {
		t.Fatalf("overwrite: status %d", code)
	}
	if len(written.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(written.Entries))
	}

	var edited api.Segment
	if code := h.requestJSON(t, "alice", http.MethodDelete, base+"?entryIndex=0", nil, &edited); code != http.StatusOK {
		t.Fatalf("delete entry: status %d", code)
	}
	if h.engine.CallCount("cut_range") != 1 {
		t.Fatalf("expected cut_range, got calls %v", h.engine.Calls())
	}

	var remaining api.Transcript
	if code := h.requestJSON(t, "alice", http.MethodGet, base, nil, &remaining); code != http.StatusOK {
		t.Fatalf("get after entry delete: status %d", code)
	}
	if len(remaining.Entries) != 1 || remaining.Entries[0].Text != "second" {
		t.Fatalf("unexpected remaining transcript: %+v", remaining.Entries)
	}

	if code := h.requestJSON(t, "alice", http.MethodDelete, base, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete all: status %d", code)
	}
	if code := h.requestJSON(t, "alice", http.MethodGet, base, nil, nil); code != http.StatusNotFound {
		t.Fatalf("after delete all: expected 404, got %d", code)
	}
}

func TestGenerateTranscriptUnconfigured(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")
	segment, _ := h.uploadSegment(t, "alice", episode.ID, "talk", "talk.mp3", "aaaa")

	code := h.requestJSON(t, "alice", http.MethodPost,
		fmt.Sprintf("/api/episodes/%d/segments/%d/transcript", episode.ID, segment.ID), nil, nil)
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502 when transcription unconfigured, got %d", code)
	}
}

func TestRenderAndStreamFinalAudio(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")

	code := h.requestJSON(t, "alice", http.MethodPost, fmt.Sprintf("/api/episodes/%d/render", episode.ID), nil, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("empty timeline: expected 400, got %d", code)
	}

	h.uploadSegment(t, "alice", episode.ID, "intro", "intro.mp3", strings.Repeat("a", 64))
	var result api.RenderResult
	if code := h.requestJSON(t, "alice", http.MethodPost, fmt.Sprintf("/api/episodes/%d/render", episode.ID), nil, &result); code != http.StatusOK {
		t.Fatalf("render: status %d", code)
	}
	if result.Episode.FinalAudioURL == "" {
		t.Fatal("render result missing audio url")
	}

	resp := h.request(t, "alice", http.MethodGet, result.Episode.FinalAudioURL, nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream: status %d", resp.StatusCode)
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		t.Fatalf("expected byte-range support, got %q", resp.Header.Get("Accept-Ranges"))
	}
}

func TestAssetEndpoints(t *testing.T) {
	h := newTestHarness(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("name", "stinger"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	part, err := writer.CreateFormFile("file", "stinger.mp3")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(strings.Repeat("s", 128))); err != nil {
		t.Fatalf("part write: %v", err)
	}
	writer.Close()

	resp := h.request(t, "alice", http.MethodPost, "/api/assets", &buf, writer.FormDataContentType())
	var asset api.Asset
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	resp.Body.Close()

	var list api.AssetList
	if code := h.requestJSON(t, "alice", http.MethodGet, "/api/assets", nil, &list); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if len(list.Assets) != 1 || list.Assets[0].Name != "stinger" {
		t.Fatalf("unexpected assets: %+v", list.Assets)
	}

	if code := h.requestJSON(t, "bob", http.MethodDelete, fmt.Sprintf("/api/assets/%d", asset.ID), nil, nil); code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", code)
	}
	if code := h.requestJSON(t, "alice", http.MethodDelete, fmt.Sprintf("/api/assets/%d", asset.ID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
}

func TestUsageEndpoint(t *testing.T) {
	h := newTestHarness(t)
	episode := h.createEpisode(t, "alice", "pilot")
	h.uploadSegment(t, "alice", episode.ID, "intro", "intro.mp3", strings.Repeat("a", 100))

	var usage api.Usage
	if code := h.requestJSON(t, "alice", http.MethodGet, "/api/usage", nil, &usage); code != http.StatusOK {
		t.Fatalf("usage: status %d", code)
	}
	if usage.UsedBytes != 100 {
		t.Fatalf("expected 100 bytes used, got %d", usage.UsedBytes)
	}
	if usage.LimitBytes != h.cfg.Storage.QuotaBytes {
		t.Fatalf("expected limit %d, got %d", h.cfg.Storage.QuotaBytes, usage.LimitBytes)
	}
}
