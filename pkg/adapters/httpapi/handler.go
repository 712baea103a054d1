// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi implements the gateway's HTTP surface: login sessions,
// paper submission, asset retrieval, and the processing history.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MerLin027/PaperSynth/pkg/auth"
	"github.com/MerLin027/PaperSynth/pkg/core/api"
	"github.com/MerLin027/PaperSynth/pkg/core/schema"
	"github.com/MerLin027/PaperSynth/pkg/core/validate"
	"github.com/MerLin027/PaperSynth/pkg/filestore"
	"github.com/MerLin027/PaperSynth/pkg/observability/logging"
	"github.com/MerLin027/PaperSynth/pkg/pdfinfo"
	"github.com/MerLin027/PaperSynth/pkg/storage"
)

// Handler implements the gateway HTTP adapter.
type Handler struct {
	client      *api.Client
	sessions    *auth.Sessions
	cache       filestore.Cache
	history     storage.History // nil when the history log is disabled
	logger      *logging.Logger
	mux         *http.ServeMux
	maxUploadMB int64

	// current is the last successfully processed paper. The UI shows one
	// paper at a time; replacing it drops the previous one.
	currentMu sync.RWMutex
	current   *schema.AdaptedPaper
}

// New creates the gateway HTTP handler and registers its routes.
func New(client *api.Client, sessions *auth.Sessions, cache filestore.Cache, history storage.History, logger *logging.Logger, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = validate.DefaultMaxSizeMB
	}
	h := &Handler{
		client:      client,
		sessions:    sessions,
		cache:       cache,
		history:     history,
		logger:      logger,
		mux:         http.NewServeMux(),
		maxUploadMB: maxUploadMB,
	}

	// Session API
	h.mux.HandleFunc("POST /api/session", h.handleLogin)
	h.mux.HandleFunc("DELETE /api/session", h.requireSession(h.handleLogout))

	// Papers API
	h.mux.HandleFunc("POST /api/papers", h.requireSession(h.handleProcessPaper))
	h.mux.HandleFunc("GET /api/papers/current", h.requireSession(h.handleCurrentPaper))
	h.mux.HandleFunc("DELETE /api/papers/current", h.requireSession(h.handleClearPaper))
	h.mux.HandleFunc("GET /api/papers/{id}/status", h.requireSession(h.handleStatus))
	h.mux.HandleFunc("GET /api/papers/{id}/assets/{kind}", h.requireSession(h.handleAsset))

	// History API
	h.mux.HandleFunc("GET /api/history", h.requireSession(h.handleListHistory))
	h.mux.HandleFunc("GET /api/history/{id}", h.requireSession(h.handleGetHistory))
	h.mux.HandleFunc("DELETE /api/history/{id}", h.requireSession(h.handleDeleteHistory))

	// Backend health pass-through
	h.mux.HandleFunc("GET /api/health", h.handleHealth)

	return h
}

// ServeHTTP implements http.Handler. Every request gets a gateway request id
// echoed in the X-Request-ID response header.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-ID", reqID)

	h.logger.WithRequest(reqID).Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	h.mux.ServeHTTP(w, r)
}

// requireSession rejects requests without a valid gateway session token.
// The session token is the gateway's own JWT; it is never forwarded to the
// backend, which authenticates with its separate service secret.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(w, http.StatusUnauthorized, "missing_session", "Login required")
			return
		}
		if err := h.sessions.Verify(token); err != nil {
			h.writeError(w, http.StatusUnauthorized, "invalid_session", "Session expired, log in again")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if len(authz) > len(prefix) && authz[:len(prefix)] == prefix {
		return authz[len(prefix):]
	}
	return ""
}

// handleLogin checks the shared passphrase and issues a session token.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	token, err := h.sessions.Login(req.Password)
	if err != nil {
		h.logger.Warn("Login rejected", "remote_addr", r.RemoteAddr)
		h.writeError(w, http.StatusUnauthorized, "invalid_login", "Invalid password")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleLogout ends the session. Tokens are stateless, so the gateway only
// acknowledges; the client discards its copy.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth proxies the backend health report and adds the gateway's own
// verdict. Reachable without a session so load balancers can probe it.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.CheckHealth(r.Context())
	if err != nil {
		h.logger.Error("Backend health check failed", "error", err)
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"gateway": "ok",
			"backend": "unreachable",
			"error":   api.ExtractMessage(err),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"gateway": "ok",
		"backend": status.Status,
		"detail":  status,
	})
}

// handleProcessPaper accepts the multipart upload, validates it locally, and
// runs the backend pipeline. The adapted result becomes the current paper.
func (h *Handler) handleProcessPaper(w http.ResponseWriter, r *http.Request) {
	upload, settings, err := h.parseUpload(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	if err := validate.Upload(*upload, h.maxUploadMB); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	// Inspect the PDF before spending backend time on it. A parse failure
	// beyond the magic check is not fatal; the backend has its own parser.
	pages := 0
	info, err := pdfinfo.Inspect(upload.Content)
	switch {
	case errors.Is(err, pdfinfo.ErrNotPDF):
		h.writeError(w, http.StatusBadRequest, "invalid_upload", validate.ErrWrongType.Error())
		return
	case err != nil:
		h.logger.Warn("PDF preflight inspection failed", "file", upload.Filename, "error", err)
	default:
		pages = info.Pages
	}

	req := &schema.ProcessingRequest{
		Upload:         *upload,
		SummaryLength:  settings.summaryLength,
		GenerateVisual: settings.generateVisual,
		GenerateAudio:  settings.generateAudio,
		Preset:         settings.preset,
	}

	result, err := h.client.ProcessPaper(r.Context(), req)
	if err != nil {
		h.writeBackendError(w, err)
		return
	}

	// Prefer the locally counted page number over the size-based estimate
	// when the backend did not report one.
	if result.Pages == nil && pages > 0 {
		result.Pages = &pages
	}

	paper := api.AdaptResult(result, *upload)

	h.currentMu.Lock()
	h.current = paper
	h.currentMu.Unlock()

	if h.history != nil {
		entry := &storage.Entry{
			RequestID:     paper.FileID,
			Filename:      paper.Name,
			SizeBytes:     paper.Size,
			Pages:         paper.Pages,
			SummaryLength: string(settings.summaryLength),
			Preset:        string(settings.preset),
			Warnings:      paper.Warnings,
			CreatedAt:     time.Now().UTC(),
		}
		if err := h.history.Append(r.Context(), entry); err != nil {
			h.logger.Error("Failed to record history entry", "request_id", paper.FileID, "error", err)
		}
	}

	h.logger.Info("Paper processed",
		"request_id", paper.FileID,
		"file", paper.Name,
		"pages", paper.Pages,
		"warnings", len(paper.Warnings))

	h.writeJSON(w, http.StatusOK, paper)
}

// uploadSettings are the optional generation knobs of a submission.
type uploadSettings struct {
	summaryLength  schema.SummaryLength
	generateVisual *bool
	generateAudio  *bool
	preset         schema.ImagePreset
}

func (h *Handler) parseUpload(r *http.Request) (*schema.Upload, *uploadSettings, error) {
	maxMem := (h.maxUploadMB + 1) * 1024 * 1024
	if err := r.ParseMultipartForm(maxMem); err != nil {
		return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.New("missing file field")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}

	upload := &schema.Upload{
		Filename:    header.Filename,
		Size:        int64(len(content)),
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}

	settings := &uploadSettings{}
	if v := r.FormValue("summary_length"); v != "" {
		length := schema.SummaryLength(v)
		if !length.Valid() {
			return nil, nil, fmt.Errorf("invalid summary length %q", v)
		}
		settings.summaryLength = length
	}
	if v := r.FormValue("sdxl_preset"); v != "" {
		preset := schema.ImagePreset(v)
		if !preset.Valid() {
			return nil, nil, fmt.Errorf("invalid image preset %q", v)
		}
		settings.preset = preset
	}
	if v := r.FormValue("generate_visual"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid generate_visual value %q", v)
		}
		settings.generateVisual = &b
	}
	if v := r.FormValue("generate_audio"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid generate_audio value %q", v)
		}
		settings.generateAudio = &b
	}
	return upload, settings, nil
}

// handleCurrentPaper returns the last processed paper.
func (h *Handler) handleCurrentPaper(w http.ResponseWriter, r *http.Request) {
	h.currentMu.RLock()
	paper := h.current
	h.currentMu.RUnlock()

	if paper == nil {
		h.writeError(w, http.StatusNotFound, "no_paper", "No paper has been processed yet")
		return
	}
	h.writeJSON(w, http.StatusOK, paper)
}

// handleClearPaper drops the current paper and its cached assets.
func (h *Handler) handleClearPaper(w http.ResponseWriter, r *http.Request) {
	h.currentMu.Lock()
	paper := h.current
	h.current = nil
	h.currentMu.Unlock()

	if paper != nil {
		if err := h.cache.Delete(r.Context(), paper.FileID); err != nil {
			h.logger.Error("Failed to evict cached assets", "request_id", paper.FileID, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus proxies the backend's per-request status lookup.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status, err := h.client.GetStatus(r.Context(), id)
	if err != nil {
		h.writeBackendError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// handleAsset serves a generated artifact, fetching it from the backend on
// first access and from the cache afterwards.
func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kind := r.PathValue("kind")

	filename := filestore.Filename(kind)
	if filename == "" {
		h.writeError(w, http.StatusNotFound, "unknown_asset", fmt.Sprintf("Unknown asset kind %q", kind))
		return
	}

	asset, err := h.cache.Get(r.Context(), id, kind)
	if err != nil && !errors.Is(err, filestore.ErrAssetNotFound) {
		h.logger.Error("Asset cache lookup failed", "request_id", id, "kind", kind, "error", err)
	}
	if asset == nil {
		asset, err = h.fetchAsset(r, id, kind, filename)
		if err != nil {
			h.writeBackendError(w, err)
			return
		}
	}

	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", asset.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(asset.Bytes, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(asset.Content)
}

// fetchAsset resolves the asset URL through the status endpoint, downloads
// it, and caches it. A cache write failure only logs; the asset still serves.
func (h *Handler) fetchAsset(r *http.Request, id, kind, filename string) (*filestore.Asset, error) {
	status, err := h.client.GetStatus(r.Context(), id)
	if err != nil {
		return nil, err
	}

	assetURL := assetURLFor(status, kind)
	if assetURL == "" {
		return nil, &api.Error{StatusCode: http.StatusNotFound,
			Message: fmt.Sprintf("Asset %s is not available for this paper", kind)}
	}

	content, contentType, err := h.client.FetchAsset(r.Context(), assetURL)
	if err != nil {
		return nil, err
	}

	asset := &filestore.Asset{
		RequestID:   id,
		Kind:        kind,
		Filename:    filename,
		ContentType: contentType,
		Bytes:       int64(len(content)),
		Content:     content,
		FetchedAt:   time.Now().UTC(),
	}
	if err := h.cache.Put(r.Context(), asset); err != nil {
		h.logger.Error("Failed to cache asset", "request_id", id, "kind", kind, "error", err)
	}
	return asset, nil
}

func assetURLFor(status *schema.StatusResult, kind string) string {
	var u *string
	switch kind {
	case filestore.KindSummaryPDF:
		u = status.SummaryPDF
	case filestore.KindGraphicalAbstract:
		u = status.GraphicalAbstract
	case filestore.KindVoiceover:
		u = status.Voiceover
	case filestore.KindPresentation:
		u = status.Presentation
	}
	if u == nil {
		return ""
	}
	return *u
}

// handleListHistory returns recent processing entries, newest first.
func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "history_disabled", "History is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list history", "error", err)
		h.writeError(w, http.StatusInternalServerError, "history_error", "Failed to read history")
		return
	}
	if entries == nil {
		entries = []*storage.Entry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// handleGetHistory returns one processing entry by request id.
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "history_disabled", "History is not enabled")
		return
	}
	id := r.PathValue("id")

	entry, err := h.history.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "No such history entry")
			return
		}
		h.logger.Error("Failed to read history entry", "request_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "history_error", "Failed to read history entry")
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// handleDeleteHistory removes one history entry and its cached assets.
func (h *Handler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "history_disabled", "History is not enabled")
		return
	}
	id := r.PathValue("id")

	if err := h.history.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "No such history entry")
			return
		}
		h.logger.Error("Failed to delete history entry", "request_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "history_error", "Failed to delete history entry")
		return
	}
	if err := h.cache.Delete(r.Context(), id); err != nil {
		h.logger.Error("Failed to evict cached assets", "request_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeBackendError maps a failed backend call onto the gateway's error
// envelope with an actionable message per failure class.
func (h *Handler) writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case api.IsTimeout(err):
		h.writeError(w, http.StatusGatewayTimeout, "timeout",
			"Processing took too long. Try a smaller file or a shorter summary.")
	case api.IsRateLimited(err):
		h.writeError(w, http.StatusTooManyRequests, "rate_limited",
			"Rate limit reached. Wait a minute and try again.")
	case api.IsPayloadTooLarge(err):
		h.writeError(w, http.StatusRequestEntityTooLarge, "file_too_large",
			api.ExtractMessage(err))
	case api.IsLinkExpired(err):
		h.writeError(w, http.StatusGone, "link_expired",
			"The download link has expired. Process the paper again.")
	case api.IsUnauthorized(err):
		// The backend rejected the gateway's service credential. That is a
		// deployment problem, not something the user's session can fix.
		h.logger.Error("Backend rejected service credential")
		h.writeError(w, http.StatusBadGateway, "backend_auth",
			"The processing backend rejected the gateway credential.")
	default:
		status := http.StatusBadGateway
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
		h.writeError(w, status, "backend_error", api.ExtractMessage(err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the gateway's error envelope.
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
