package channelsync

import (
	"context"

	"github.com/wms-core/server/internal/domain"
)

// ListChannels returns the configured sales channels, the "GET
// /api/channels" surface (§6).
func (s *Service) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := s.db.SelectContext(ctx, &channels, `SELECT * FROM channels ORDER BY id ASC`)
	return channels, err
}

// CreateChannel registers a new sales channel.
func (s *Service) CreateChannel(ctx context.Context, ch domain.Channel) (domain.ChannelID, error) {
	var id domain.ChannelID
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO channels (code, name, driver_type, config, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5, now(), now())
		RETURNING id`, ch.Code, ch.Name, ch.DriverType, ch.Config, ch.Active).Scan(&id)
	return id, err
}

// CreateFeed binds a variant to its external representation on a channel.
func (s *Service) CreateFeed(ctx context.Context, feed domain.ChannelFeed) (domain.FeedID, error) {
	var id domain.FeedID
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO channel_feeds (channel_id, variant_id, channel_side_variant_id, active)
		VALUES ($1,$2,$3,$4)
		RETURNING id`, feed.ChannelID, feed.VariantID, feed.ChannelSideVariantID, feed.Active).Scan(&id)
	return id, err
}
