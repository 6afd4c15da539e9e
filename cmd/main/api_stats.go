package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/Tidewatch/pkg/feed"
)

const statsSchema = `
CREATE TABLE IF NOT EXISTS stats_channel_views (
    channel_name  TEXT PRIMARY KEY,
    total_views   INTEGER NOT NULL DEFAULT 1,
    first_seen    DATETIME NOT NULL,
    last_seen     DATETIME NOT NULL
);
`

// StatsSummary is the response for /api/stats/summary. It joins snapshot
// storage stats with page view counters.
type StatsSummary struct {
	Store      *feed.StoreStats `json:"store"`
	TotalViews int64            `json:"total_views"`
}

// StatsAPI holds the dependencies for the statistics handlers.
type StatsAPI struct {
	db     *sql.DB
	store  *feed.Store
	logger *slog.Logger
}

func setupStatsSchema(db *sql.DB) error {
	_, err := db.Exec(statsSchema)
	return err
}

func NewStatsAPI(db *sql.DB, store *feed.Store, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		db:     db,
		store:  store,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", s.handleSummary)
	mux.HandleFunc("/api/stats/top_channels", s.handleTopChannels)
}

// LogView records a public page view for a channel. Called by the page
// handler on every successful render, so failures are logged, not returned.
func (s *StatsAPI) LogView(r *http.Request, channelName string) {
	now := time.Now()
	_, err := s.db.ExecContext(r.Context(), `
        INSERT INTO stats_channel_views (channel_name, first_seen, last_seen) VALUES (?, ?, ?)
        ON CONFLICT(channel_name) DO UPDATE SET total_views = total_views + 1, last_seen = ?
    `, channelName, now, now, now)
	if err != nil {
		s.logger.Error("Failed to record channel view", "channel", channelName, "error", err)
	}
}

func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "stats:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	storeStats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("Failed to query store stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	summary := StatsSummary{Store: storeStats}
	_ = s.db.QueryRowContext(r.Context(), "SELECT COALESCE(SUM(total_views), 0) FROM stats_channel_views").Scan(&summary.TotalViews)
	respondWithJSON(w, http.StatusOK, summary)
}

func (s *StatsAPI) handleTopChannels(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "stats:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	rows, err := s.db.QueryContext(r.Context(), "SELECT channel_name, total_views, first_seen, last_seen FROM stats_channel_views ORDER BY total_views DESC LIMIT 100")
	if err != nil {
		s.logger.Error("Failed to query top channels", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var results []map[string]any
	for rows.Next() {
		var name string
		var views int
		var first, last time.Time
		err = rows.Scan(&name, &views, &first, &last)
		if err != nil {
			s.logger.Error("Failed to scan top channels", "error", err)
		}
		results = append(results, map[string]any{
			"channel_name": name,
			"total_views":  views,
			"first_seen":   first,
			"last_seen":    last,
		})
	}
	respondWithJSON(w, http.StatusOK, results)
}
