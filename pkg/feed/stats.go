package feed

import (
	"context"
)

// StoreStats holds aggregated statistics for the entire database,
// including a list of all channels and their individual stats.
type StoreStats struct {
	Channels      []ChannelInfo        // A list of channels in the database
	Stats         map[int]ChannelStats // A mapping of channel ids to their stats
	TotalSnapshot int                  // The number of snapshots across all channels
}

// ChannelStats holds aggregated statistics for a single feed channel.
type ChannelStats struct {
	SnapshotCount int   // The number of snapshots held for the channel.
	TotalBytes    int64 // The combined size of stored XML and HTML in bytes.
	LastRendered  int64 // The unix timestamp of the newest snapshot, 0 if none.
}

// GetStats returns a snapshot of statistics for the entire database,
// including global counts and per-channel stats.
func (s *Store) GetStats(ctx context.Context) (*StoreStats, error) {
	channelInfos, err := s.GetChannelInfos(ctx)
	if err != nil {
		return nil, err
	}

	var totalSnapshots int
	err = s.stmtSnapshotCount.QueryRowContext(ctx).Scan(&totalSnapshots)
	if err != nil {
		return nil, err
	}

	channels := make([]ChannelInfo, 0)
	channelStats := make(map[int]ChannelStats)
	for _, v := range channelInfos {
		channels = append(channels, v)
		var snapshotCount int
		var totalBytes, lastRendered int64
		err = s.stmtChannelCount.QueryRowContext(ctx, v.Id).Scan(&snapshotCount)
		if err != nil {
			return nil, err
		}
		err = s.stmtChannelBytes.QueryRowContext(ctx, v.Id).Scan(&totalBytes)
		if err != nil {
			return nil, err
		}
		err = s.stmtChannelLatest.QueryRowContext(ctx, v.Id).Scan(&lastRendered)
		if err != nil {
			return nil, err
		}
		channelStats[v.Id] = ChannelStats{
			SnapshotCount: snapshotCount,
			TotalBytes:    totalBytes,
			LastRendered:  lastRendered,
		}
	}

	return &StoreStats{
		Channels:      channels,
		Stats:         channelStats,
		TotalSnapshot: totalSnapshots,
	}, nil
}
