package feed

import (
	"context"
	"fmt"
	"log/slog"
)

// PruneChannel removes all but the `keep` most recent snapshots of a
// channel. This is useful for bounding the size of a channel's history
// when only the latest few renders matter.
func (s *Store) PruneChannel(ctx context.Context, channel ChannelInfo, keep int) error {
	res, err := s.stmtPruneKeepRecent.ExecContext(ctx, channel.Id, channel.Id, keep)
	if err != nil {
		return fmt.Errorf("could not prune channel %d: %w", channel.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Channel pruned",
		slog.String("channel_name", channel.Name),
		slog.Int("channel_id", channel.Id),
		slog.Int("kept", keep),
		slog.Int64("snapshots_removed", rowsAffected),
	)
	return nil
}

// PruneBefore removes all snapshots of a channel created before the given
// unix timestamp.
func (s *Store) PruneBefore(ctx context.Context, channel ChannelInfo, cutoff int64) error {
	res, err := s.stmtPruneBefore.ExecContext(ctx, channel.Id, cutoff)
	if err != nil {
		return fmt.Errorf("could not prune channel %d before %d: %w", channel.Id, cutoff, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Channel history trimmed",
		slog.String("channel_name", channel.Name),
		slog.Int("channel_id", channel.Id),
		slog.Int64("cutoff", cutoff),
		slog.Int64("snapshots_removed", rowsAffected),
	)
	return nil
}
