package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SetupSchema initializes the channel and snapshot tables in the provided
// database. This function should be called once on a new database before
// any other operations are performed. It is idempotent and safe to call on
// an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaChannels = `
CREATE TABLE IF NOT EXISTS feed_channels (
    channel_id INTEGER PRIMARY KEY,
    channel_name TEXT NOT NULL UNIQUE,
    shape TEXT NOT NULL
);
`
		schemaSnapshots = `
CREATE TABLE IF NOT EXISTS feed_snapshots (
    snapshot_id TEXT PRIMARY KEY,
    channel_id INTEGER NOT NULL,
    shape TEXT NOT NULL,
    source_xml TEXT NOT NULL,
    html TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`
		schemaSnapshotIdx = `
CREATE INDEX IF NOT EXISTS idx_snapshots_channel_created
    ON feed_snapshots (channel_id, created_at);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaChannels); err != nil {
		return fmt.Errorf("could not create channels schema: %w", err)
	}

	if _, err = tx.Exec(schemaSnapshots); err != nil {
		return fmt.Errorf("could not create snapshots schema: %w", err)
	}

	if _, err = tx.Exec(schemaSnapshotIdx); err != nil {
		return fmt.Errorf("could not create snapshot index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// ChannelInfo holds the metadata for a feed channel: its unique ID, its
// name, and the feed shape its snapshots are expected to carry.
type ChannelInfo struct {
	Id    int
	Name  string
	Shape Shape
}

// Snapshot is one ingested feed document together with its rendered HTML.
type Snapshot struct {
	Id        string `json:"id"`
	ChannelId int    `json:"-"`
	Shape     Shape  `json:"shape"`
	SourceXML string `json:"source_xml"`
	HTML      string `json:"html"`
	CreatedAt int64  `json:"created_at"`
}

// Store persists feed channels and rendered snapshots. It holds the
// database connection and prepared SQL statements for efficient access.
type Store struct {
	db                  *sql.DB
	stmtGetChannelInfo  *sql.Stmt
	stmtGetChannels     *sql.Stmt
	stmtAddChannel      *sql.Stmt
	stmtInsertSnapshot  *sql.Stmt
	stmtGetSnapshot     *sql.Stmt
	stmtLatestSnapshot  *sql.Stmt
	stmtListSnapshots   *sql.Stmt
	stmtRemoveSnapshot  *sql.Stmt
	stmtChannelCount    *sql.Stmt
	stmtChannelBytes    *sql.Stmt
	stmtChannelLatest   *sql.Stmt
	stmtSnapshotCount   *sql.Stmt
	stmtPruneKeepRecent *sql.Stmt
	stmtPruneBefore     *sql.Stmt
	logger              *slog.Logger
}

// NewStore creates and returns a new Store over the given database
// connection. It pre-compiles all necessary SQL statements, returning an
// error if any preparation fails.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetChannelInfo, err := db.Prepare(`SELECT channel_id, shape FROM feed_channels WHERE channel_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetChannels, err := db.Prepare(`SELECT channel_id, channel_name, shape FROM feed_channels;`)
	if err != nil {
		return nil, err
	}

	stmtAddChannel, err := db.Prepare(`INSERT INTO feed_channels (channel_name, shape) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertSnapshot, err := db.Prepare(`INSERT INTO feed_snapshots (snapshot_id, channel_id, shape, source_xml, html, created_at) VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetSnapshot, err := db.Prepare(`SELECT snapshot_id, channel_id, shape, source_xml, html, created_at FROM feed_snapshots WHERE snapshot_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtLatestSnapshot, err := db.Prepare(`SELECT snapshot_id, channel_id, shape, source_xml, html, created_at FROM feed_snapshots WHERE channel_id = ? ORDER BY created_at DESC, snapshot_id DESC LIMIT 1;`)
	if err != nil {
		return nil, err
	}

	stmtListSnapshots, err := db.Prepare(`SELECT snapshot_id, channel_id, shape, source_xml, html, created_at FROM feed_snapshots WHERE channel_id = ? ORDER BY created_at DESC, snapshot_id DESC LIMIT ?;`)
	if err != nil {
		return nil, err
	}

	stmtRemoveSnapshot, err := db.Prepare(`DELETE FROM feed_snapshots WHERE snapshot_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtChannelCount, err := db.Prepare(`SELECT COUNT(*) FROM feed_snapshots WHERE channel_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtChannelBytes, err := db.Prepare(`SELECT coalesce(SUM(length(source_xml) + length(html)), 0) FROM feed_snapshots WHERE channel_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtChannelLatest, err := db.Prepare(`SELECT coalesce(MAX(created_at), 0) FROM feed_snapshots WHERE channel_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtSnapshotCount, err := db.Prepare(`SELECT COUNT(*) FROM feed_snapshots;`)
	if err != nil {
		return nil, err
	}

	stmtPruneKeepRecent, err := db.Prepare(`DELETE FROM feed_snapshots WHERE channel_id = ? AND snapshot_id NOT IN (SELECT snapshot_id FROM feed_snapshots WHERE channel_id = ? ORDER BY created_at DESC, snapshot_id DESC LIMIT ?);`)
	if err != nil {
		return nil, err
	}

	stmtPruneBefore, err := db.Prepare(`DELETE FROM feed_snapshots WHERE channel_id = ? AND created_at < ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                  db,
		stmtGetChannelInfo:  stmtGetChannelInfo,
		stmtGetChannels:     stmtGetChannels,
		stmtAddChannel:      stmtAddChannel,
		stmtInsertSnapshot:  stmtInsertSnapshot,
		stmtGetSnapshot:     stmtGetSnapshot,
		stmtLatestSnapshot:  stmtLatestSnapshot,
		stmtListSnapshots:   stmtListSnapshots,
		stmtRemoveSnapshot:  stmtRemoveSnapshot,
		stmtChannelCount:    stmtChannelCount,
		stmtChannelBytes:    stmtChannelBytes,
		stmtChannelLatest:   stmtChannelLatest,
		stmtSnapshotCount:   stmtSnapshotCount,
		stmtPruneKeepRecent: stmtPruneKeepRecent,
		stmtPruneBefore:     stmtPruneBefore,
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It should
// be called when the Store is no longer needed to free up database
// resources.
func (s *Store) Close() {
	_ = s.stmtGetChannelInfo.Close()
	_ = s.stmtGetChannels.Close()
	_ = s.stmtAddChannel.Close()
	_ = s.stmtInsertSnapshot.Close()
	_ = s.stmtGetSnapshot.Close()
	_ = s.stmtLatestSnapshot.Close()
	_ = s.stmtListSnapshots.Close()
	_ = s.stmtRemoveSnapshot.Close()
	_ = s.stmtChannelCount.Close()
	_ = s.stmtChannelBytes.Close()
	_ = s.stmtChannelLatest.Close()
	_ = s.stmtSnapshotCount.Close()
	_ = s.stmtPruneKeepRecent.Close()
	_ = s.stmtPruneBefore.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetChannelInfos retrieves metadata for all channels currently in the
// database, returning them in a map keyed by channel name.
func (s *Store) GetChannelInfos(ctx context.Context) (map[string]ChannelInfo, error) {
	rows, err := s.stmtGetChannels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	channels := make(map[string]ChannelInfo)
	for rows.Next() {
		var channel ChannelInfo
		if err = rows.Scan(&channel.Id, &channel.Name, &channel.Shape); err != nil {
			return nil, err
		}
		channels[channel.Name] = channel
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}

// GetChannelInfo retrieves the metadata for a single channel specified by
// name. If multiple channels are needed, GetChannelInfos is more efficient.
func (s *Store) GetChannelInfo(ctx context.Context, channelName string) (ChannelInfo, error) {
	var channelId int
	var shape Shape
	err := s.stmtGetChannelInfo.QueryRowContext(ctx, channelName).Scan(&channelId, &shape)
	if err != nil {
		return ChannelInfo{}, err
	}
	return ChannelInfo{
		Id:    channelId,
		Name:  channelName,
		Shape: shape,
	}, nil
}

// InsertChannel creates a new channel entry in the database.
func (s *Store) InsertChannel(ctx context.Context, channel ChannelInfo) error {
	_, err := s.stmtAddChannel.ExecContext(ctx, channel.Name, channel.Shape)
	return err
}

// RemoveChannel deletes a channel and all of its snapshots from the
// database. The operation is performed within a transaction.
func (s *Store) RemoveChannel(ctx context.Context, channel ChannelInfo) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM feed_snapshots WHERE channel_id = ?", channel.Id); err != nil {
		return fmt.Errorf("failed to remove snapshots for channel %d: %w", channel.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM feed_channels WHERE channel_id = ?", channel.Id); err != nil {
		return fmt.Errorf("failed to remove channel %d: %w", channel.Id, err)
	}

	s.logger.InfoContext(ctx, "Channel removed successfully",
		slog.String("channel_name", channel.Name),
		slog.Int("channel_id", channel.Id),
	)

	return tx.Commit()
}

// InsertSnapshot stores a rendered snapshot under the given channel. An
// empty Id is replaced with a fresh UUID and a zero CreatedAt with the
// current time; the stored snapshot is returned.
func (s *Store) InsertSnapshot(ctx context.Context, channel ChannelInfo, snap Snapshot) (Snapshot, error) {
	if snap.Id == "" {
		snap.Id = uuid.NewString()
	}
	if snap.CreatedAt == 0 {
		snap.CreatedAt = time.Now().Unix()
	}
	snap.ChannelId = channel.Id

	_, err := s.stmtInsertSnapshot.ExecContext(ctx, snap.Id, snap.ChannelId, snap.Shape, snap.SourceXML, snap.HTML, snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to insert snapshot for channel %d: %w", channel.Id, err)
	}

	s.logger.DebugContext(ctx, "Snapshot stored",
		slog.String("snapshot_id", snap.Id),
		slog.String("channel_name", channel.Name),
		slog.String("shape", string(snap.Shape)),
	)

	return snap, nil
}

// GetSnapshot retrieves a single snapshot by ID.
func (s *Store) GetSnapshot(ctx context.Context, snapshotId string) (Snapshot, error) {
	var snap Snapshot
	err := s.stmtGetSnapshot.QueryRowContext(ctx, snapshotId).
		Scan(&snap.Id, &snap.ChannelId, &snap.Shape, &snap.SourceXML, &snap.HTML, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LatestSnapshot retrieves the most recent snapshot of a channel.
func (s *Store) LatestSnapshot(ctx context.Context, channel ChannelInfo) (Snapshot, error) {
	var snap Snapshot
	err := s.stmtLatestSnapshot.QueryRowContext(ctx, channel.Id).
		Scan(&snap.Id, &snap.ChannelId, &snap.Shape, &snap.SourceXML, &snap.HTML, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// ListSnapshots retrieves up to limit snapshots of a channel, most recent
// first.
func (s *Store) ListSnapshots(ctx context.Context, channel ChannelInfo, limit int) ([]Snapshot, error) {
	rows, err := s.stmtListSnapshots.QueryContext(ctx, channel.Id, limit)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err = rows.Scan(&snap.Id, &snap.ChannelId, &snap.Shape, &snap.SourceXML, &snap.HTML, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// RemoveSnapshot deletes a single snapshot by ID.
func (s *Store) RemoveSnapshot(ctx context.Context, snapshotId string) error {
	_, err := s.stmtRemoveSnapshot.ExecContext(ctx, snapshotId)
	return err
}
