package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/Tidewatch/pkg/feed"
	"github.com/CTAG07/Tidewatch/pkg/rendering"
)

// FeedsAPI holds the dependencies for the feed ingestion and snapshot API handlers.
type FeedsAPI struct {
	store    *feed.Store
	rm       *rendering.Manager
	assessor *feed.Assessor
	cm       *ConfigManager
	logger   *slog.Logger
}

// NewFeedsAPI creates a new instance of the FeedsAPI.
func NewFeedsAPI(store *feed.Store, rm *rendering.Manager, assessor *feed.Assessor, cm *ConfigManager, logger *slog.Logger) *FeedsAPI {
	return &FeedsAPI{
		store:    store,
		rm:       rm,
		assessor: assessor,
		cm:       cm,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all /api/feeds and /api/snapshots endpoints.
func (f *FeedsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/feeds/import", f.handleImport)
	mux.HandleFunc("/api/feeds/", f.handleChannelAction)
	mux.HandleFunc("/api/snapshots/", f.handleSnapshotByID)
}

// PruneChannelRequest is the expected JSON body for pruning a channel's history.
// Keep retains the N most recent snapshots; Before removes snapshots older
// than a unix timestamp. Exactly one must be set.
type PruneChannelRequest struct {
	Keep   int   `json:"keep"`
	Before int64 `json:"before"`
}

// handleChannelAction routes actions for a specific channel: ingest, latest,
// snapshots, export, prune.
func (f *FeedsAPI) handleChannelAction(w http.ResponseWriter, r *http.Request) {

	path := strings.TrimPrefix(r.URL.Path, "/api/feeds/")
	parts := strings.Split(path, "/")
	channelName := parts[0]

	if channelName == "" {
		respondWithError(w, http.StatusBadRequest, "Channel name not specified")
		return
	}

	channel, err := f.store.GetChannelInfo(r.Context(), channelName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Channel not found")
			return
		}
		f.logger.Error("Failed to get channel info by name", "name", channelName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 {
		respondWithError(w, http.StatusNotFound, "Action not specified")
		return
	}

	action := parts[1]
	switch action {
	case "ingest":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !hasScope(r, "feeds:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:write' scope")
			return
		}
		f.ingest(w, r, channel)

	case "latest":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !hasScope(r, "feeds:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:read' scope")
			return
		}
		snap, err := f.store.LatestSnapshot(r.Context(), channel)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondWithError(w, http.StatusNotFound, "Channel has no snapshots")
				return
			}
			f.logger.Error("Failed to get latest snapshot", "channel", channelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, snap.HTML)

	case "snapshots":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !hasScope(r, "feeds:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:read' scope")
			return
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 20
		}
		snaps, err := f.store.ListSnapshots(r.Context(), channel, limit)
		if err != nil {
			f.logger.Error("Failed to list snapshots", "channel", channelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to list snapshots")
			return
		}
		respondWithJSON(w, http.StatusOK, snaps)

	case "export":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !hasScope(r, "feeds:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:read' scope")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", channelName))
		if err := f.store.ExportChannel(r.Context(), channel, w); err != nil {
			f.logger.Error("Failed to export channel", "channel", channelName, "error", err)
		}

	case "prune":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !hasScope(r, "feeds:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:write' scope")
			return
		}
		var req PruneChannelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		switch {
		case req.Keep > 0 && req.Before == 0:
			err = f.store.PruneChannel(r.Context(), channel, req.Keep)
		case req.Before > 0 && req.Keep == 0:
			err = f.store.PruneBefore(r.Context(), channel, req.Before)
		default:
			respondWithError(w, http.StatusBadRequest, "Exactly one of 'keep' or 'before' must be set")
			return
		}
		if err != nil {
			f.logger.Error("Failed to prune channel", "channel", channelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Pruning failed: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// ingest parses an XML feed body, renders it, and stores the snapshot.
func (f *FeedsAPI) ingest(w http.ResponseWriter, r *http.Request, channel feed.ChannelInfo) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	doc, err := feed.ParseBytes(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid XML: %v", err))
		return
	}

	shape := doc.Shape()
	if shape == feed.ShapeUnknown {
		respondWithError(w, http.StatusBadRequest, "Document does not match any known feed shape")
		return
	}
	if channel.Shape != "" && shape != channel.Shape {
		respondWithError(w, http.StatusConflict,
			fmt.Sprintf("Feed shape %q does not match channel shape %q", shape, channel.Shape))
		return
	}

	config := f.cm.Get()

	html, err := f.renderDocument(doc, shape, config.Server.AssessOnIngest)
	if err != nil {
		var missing *rendering.MissingFieldError
		if errors.As(err, &missing) {
			respondWithError(w, http.StatusUnprocessableEntity, missing.Error())
			return
		}
		f.logger.Error("Failed to render feed", "channel", channel.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Rendering failed: %v", err))
		return
	}

	snap, err := f.store.InsertSnapshot(r.Context(), channel, feed.Snapshot{
		Shape:     shape,
		SourceXML: string(body),
		HTML:      html,
	})
	if err != nil {
		f.logger.Error("Failed to store snapshot", "channel", channel.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to store snapshot")
		return
	}

	if keep := config.Server.RetainSnapshots; keep > 0 {
		if err := f.store.PruneChannel(r.Context(), channel, keep); err != nil {
			f.logger.Warn("Failed to prune channel after ingest", "channel", channel.Name, "error", err)
		}
	}

	f.logger.Info("Feed ingested",
		"channel", channel.Name,
		"shape", string(shape),
		"snapshot_id", snap.Id,
	)
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"id":         snap.Id,
		"shape":      snap.Shape,
		"created_at": snap.CreatedAt,
	})
}

// renderDocument renders a parsed feed. Maritime dashboards get their
// derived risk fields filled in first when assessment is enabled.
func (f *FeedsAPI) renderDocument(doc *feed.Document, shape feed.Shape, assess bool) (string, error) {
	var buf bytes.Buffer
	if shape == feed.ShapeMaritime && assess {
		dash := feed.ParseDashboard(doc)
		f.assessor.Assess(dash)
		if err := f.rm.RenderDashboard(&buf, dash); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	if err := f.rm.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// handleImport imports a channel from an uploaded JSON file.
func (f *FeedsAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "feeds:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:write' scope")
		return
	}

	if err := f.store.ImportChannel(r.Context(), r.Body); err != nil {
		f.logger.Error("Failed to import channel", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Import failed: %v", err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleSnapshotByID serves and deletes individual snapshots.
func (f *FeedsAPI) handleSnapshotByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/snapshots/"), "/")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Snapshot ID not specified")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "feeds:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:read' scope")
			return
		}
		snap, err := f.store.GetSnapshot(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondWithError(w, http.StatusNotFound, "Snapshot not found")
				return
			}
			f.logger.Error("Failed to get snapshot", "id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
			return
		}
		respondWithJSON(w, http.StatusOK, snap)

	case http.MethodDelete:
		if !hasScope(r, "feeds:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'feeds:write' scope")
			return
		}
		if err := f.store.RemoveSnapshot(r.Context(), id); err != nil {
			f.logger.Error("Failed to delete snapshot", "id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to delete snapshot")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
