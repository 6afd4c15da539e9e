package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/CTAG07/Tidewatch/pkg/feed"
	"github.com/CTAG07/Tidewatch/pkg/rendering"
)

type Server struct {
	cm          *ConfigManager
	db          *sql.DB
	logger      *slog.Logger
	store       *feed.Store
	assessor    *feed.Assessor
	rm          *rendering.Manager
	cache       *ChannelCache
	authAPI     *AuthAPI
	channelsAPI *ChannelsAPI
	feedsAPI    *FeedsAPI
	renderAPI   *RenderAPI
	statsAPI    *StatsAPI
	serverAPI   *ServerAPI
	pageMux     *http.ServeMux
	apiMux      *http.ServeMux
}

func NewServer(cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {

	config := cm.Get()

	store, err := feed.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating feed store: %w", err)
	}
	store.SetLogger(logger)

	assessor := feed.NewAssessor(config.Assess, logger)

	rm, err := rendering.NewManager(logger, config.Rendering)
	if err != nil {
		return nil, fmt.Errorf("failed to create rendering manager: %w", err)
	}
	cm.SetRenderingManager(rm)

	cache := NewChannelCache()
	if err = cache.LoadFromStore(context.Background(), store); err != nil {
		return nil, fmt.Errorf("failed to load channels from db: %w", err)
	}

	// api initialization
	authAPI := NewAuthAPI(db, logger)
	channelsAPI := NewChannelsAPI(store, logger, cache)
	feedsAPI := NewFeedsAPI(store, rm, assessor, cm, logger)
	renderAPI := NewRenderAPI(rm, assessor, logger)
	statsAPI := NewStatsAPI(db, store, logger)
	serverAPI := NewServerAPI(cm, actionChan, logger)

	// create object, register routes to the mux, and return it
	server := &Server{
		cm:          cm,
		db:          db,
		logger:      logger,
		store:       store,
		assessor:    assessor,
		rm:          rm,
		cache:       cache,
		authAPI:     authAPI,
		channelsAPI: channelsAPI,
		feedsAPI:    feedsAPI,
		renderAPI:   renderAPI,
		statsAPI:    statsAPI,
		serverAPI:   serverAPI,
		pageMux:     http.NewServeMux(),
		apiMux:      http.NewServeMux(),
	}

	apiMux := http.NewServeMux()

	server.authAPI.RegisterRoutes(apiMux)
	server.channelsAPI.RegisterRoutes(apiMux)
	server.feedsAPI.RegisterRoutes(apiMux)
	server.renderAPI.RegisterRoutes(apiMux)
	server.statsAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Make sure api functions must pass through authentication first
	authedAPI := server.authAPI.Authenticate(apiMux)
	// ... except for the health check, which is unauthed so something like docker can use it
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)

	server.apiMux.Handle("/api/", authedAPI)

	// Static assets (the default stylesheet lives here) are served on both
	// listeners so published pages resolve their style.css link.
	staticFs := http.FileServer(http.Dir(config.Server.StaticPath))
	server.apiMux.Handle("/static/", http.StripPrefix("/static/", staticFs))
	server.pageMux.Handle("/static/", http.StripPrefix("/static/", staticFs))

	server.pageMux.HandleFunc("/favicon.ico", handleFavicon)
	server.pageMux.HandleFunc("/", server.handlePage)

	return server, nil
}

// handlePage serves the latest rendered snapshot for a channel. The root
// path maps to the configured default channel, or to a channel index when
// no default is set.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(r.URL.Path, "/")

	if name == "" {
		name = s.cm.Get().Server.DefaultChannel
		if name == "" {
			s.serveChannelIndex(w)
			return
		}
	}

	channel, ok := s.cache.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	snap, err := s.store.LatestSnapshot(r.Context(), channel)
	if err != nil {
		s.logger.Debug("No snapshot available for channel", "channel", name, "error", err)
		http.NotFound(w, r)
		return
	}

	s.statsAPI.LogView(r, name)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = strings.NewReader(snap.HTML).WriteTo(w)
}

// serveChannelIndex writes a minimal listing of the available channels.
func (s *Server) serveChannelIndex(w http.ResponseWriter) {
	names := s.cache.Names()
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Tidewatch</title></head>\n<body>\n<h1>Channels</h1>\n<ul>\n")
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("<li><a href=\"/%s\">%s</a></li>\n", name, name))
	}
	sb.WriteString("</ul>\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = strings.NewReader(sb.String()).WriteTo(w)
}

// handleFavicon returns no content so favicon requests don't pollute the
// channel view counters.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
