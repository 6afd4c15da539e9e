package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/CTAG07/Tidewatch/pkg/feed"
)

// ChannelsAPI manages the set of feed channels.
type ChannelsAPI struct {
	store  *feed.Store
	logger *slog.Logger
	cache  *ChannelCache // A pointer to the in-memory cache
}

// ChannelCache keeps the channel table in memory so the public page
// handler can resolve channel names without a database round trip.
type ChannelCache struct {
	mu       sync.RWMutex
	channels map[string]feed.ChannelInfo
}

func NewChannelCache() *ChannelCache {
	return &ChannelCache{
		channels: make(map[string]feed.ChannelInfo),
	}
}

// LoadFromStore reads all channels from the store into the cache.
func (c *ChannelCache) LoadFromStore(ctx context.Context, store *feed.Store) error {
	infos, err := store.GetChannelInfos(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = infos
	return nil
}

// Add safely adds a single channel to the cache.
func (c *ChannelCache) Add(channel feed.ChannelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel.Name] = channel
}

// Remove safely removes a single channel from the cache.
func (c *ChannelCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, name)
}

// Get safely looks up a channel by name.
func (c *ChannelCache) Get(name string) (feed.ChannelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	channel, ok := c.channels[name]
	return channel, ok
}

// Names returns the cached channel names.
func (c *ChannelCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.channels))
	for name := range c.channels {
		names = append(names, name)
	}
	return names
}

// NewChannelsAPI creates a new instance of the ChannelsAPI.
func NewChannelsAPI(store *feed.Store, logger *slog.Logger, cache *ChannelCache) *ChannelsAPI {
	return &ChannelsAPI{
		store:  store,
		logger: logger,
		cache:  cache,
	}
}

// RegisterRoutes sets up the routing for all /api/channels endpoints.
func (a *ChannelsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/channels", a.handleChannels)
	mux.HandleFunc("/api/channels/", a.handleChannelByName)
}

// CreateChannelRequest is the expected JSON body for creating a channel.
type CreateChannelRequest struct {
	Name  string     `json:"name"`
	Shape feed.Shape `json:"shape"`
}

func (a *ChannelsAPI) handleChannels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listChannels(w, r)
	case http.MethodPost:
		a.createChannel(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (a *ChannelsAPI) listChannels(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "channels:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'channels:read' scope")
		return
	}

	infos, err := a.store.GetChannelInfos(r.Context())
	if err != nil {
		a.logger.Error("Failed to query channels", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve channels")
		return
	}

	channels := make([]feed.ChannelInfo, 0, len(infos))
	for _, channel := range infos {
		channels = append(channels, channel)
	}
	respondWithJSON(w, http.StatusOK, channels)
}

func (a *ChannelsAPI) createChannel(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "channels:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'channels:write' scope")
		return
	}

	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Channel name cannot be empty")
		return
	}
	switch req.Shape {
	case feed.ShapeNewsletter, feed.ShapeRefinery, feed.ShapeMaritime:
	default:
		respondWithError(w, http.StatusBadRequest, "Channel shape must be newsletter, refinery, or maritime")
		return
	}

	if err := a.store.InsertChannel(r.Context(), feed.ChannelInfo{Name: name, Shape: req.Shape}); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			respondWithError(w, http.StatusConflict, "A channel with this name already exists")
		} else {
			a.logger.Error("Failed to insert channel", "name", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create channel")
		}
		return
	}

	channel, err := a.store.GetChannelInfo(r.Context(), name)
	if err != nil {
		a.logger.Error("Failed to retrieve newly created channel", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to verify channel creation")
		return
	}

	a.cache.Add(channel)
	a.logger.Info("Channel created", "name", name, "shape", string(req.Shape))
	respondWithJSON(w, http.StatusCreated, channel)
}

func (a *ChannelsAPI) handleChannelByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/channels/"), "/")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Channel name not specified")
		return
	}

	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "channels:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'channels:write' scope")
		return
	}

	channel, ok := a.cache.Get(name)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Channel not found")
		return
	}

	if err := a.store.RemoveChannel(r.Context(), channel); err != nil {
		a.logger.Error("Failed to remove channel", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to remove channel")
		return
	}

	a.cache.Remove(name)
	w.WriteHeader(http.StatusNoContent)
}
