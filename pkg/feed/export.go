package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ExportedChannel is the serializable representation of a channel and its
// snapshot history, used for JSON-based import and export.
type ExportedChannel struct {
	Name      string     `json:"name"`
	Shape     Shape      `json:"shape"`
	Snapshots []Snapshot `json:"snapshots"`
}

// ExportChannel serializes a channel and all of its snapshots into JSON and
// writes the result to the provided io.Writer. This is useful for backups
// or for transferring a channel between instances.
func (s *Store) ExportChannel(ctx context.Context, channel ChannelInfo, w io.Writer) error {

	rows, err := s.db.QueryContext(ctx, "SELECT snapshot_id, shape, source_xml, html, created_at FROM feed_snapshots WHERE channel_id = ? ORDER BY created_at ASC, snapshot_id ASC", channel.Id)
	if err != nil {
		return fmt.Errorf("could not query snapshots for export: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	exported := ExportedChannel{
		Name:  channel.Name,
		Shape: channel.Shape,
	}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.Id, &snap.Shape, &snap.SourceXML, &snap.HTML, &snap.CreatedAt); err != nil {
			return err
		}
		exported.Snapshots = append(exported.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Channel exported",
		slog.String("channel_name", channel.Name),
		slog.Int("channel_id", channel.Id),
		slog.Int("snapshots_exported", len(exported.Snapshots)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportChannel reads a JSON representation of a channel from an io.Reader
// and merges its data into the database. If the channel name already
// exists, the imported snapshots are added to its history; snapshots whose
// IDs are already present are skipped. If the channel does not exist, it
// is created. The entire operation is transactional.
func (s *Store) ImportChannel(ctx context.Context, r io.Reader) error {
	var imported ExportedChannel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to decode json channel: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var channelID int
	err = tx.QueryRowContext(ctx, "SELECT channel_id FROM feed_channels WHERE channel_name = ?", imported.Name).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, "INSERT INTO feed_channels (channel_name, shape) VALUES (?, ?)", imported.Name, imported.Shape)
		if err != nil {
			return fmt.Errorf("failed to insert new channel '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		channelID = int(newID)
	} else if err != nil {
		return fmt.Errorf("failed to query for channel '%s': %w", imported.Name, err)
	}

	stmtInsertSnapshot, err := tx.PrepareContext(ctx, `
		INSERT INTO feed_snapshots (snapshot_id, channel_id, shape, source_xml, html, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert statement: %w", err)
	}
	defer func(stmtInsertSnapshot *sql.Stmt) {
		_ = stmtInsertSnapshot.Close()
	}(stmtInsertSnapshot)

	for _, snap := range imported.Snapshots {
		if snap.Id == "" {
			return fmt.Errorf("import consistency error: snapshot without an id in channel '%s'", imported.Name)
		}
		_, err = stmtInsertSnapshot.ExecContext(ctx, snap.Id, channelID, snap.Shape, snap.SourceXML, snap.HTML, snap.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot '%s': %w", snap.Id, err)
		}
	}

	s.logger.InfoContext(ctx, "Channel imported successfully",
		slog.String("channel_name", imported.Name),
		slog.Int("target_channel_id", channelID),
		slog.Int("snapshots_merged", len(imported.Snapshots)),
	)

	return tx.Commit()
}
