package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetAnnounceChannel returns the channel configured with /mockinterview channel.
func (db *DB) GetAnnounceChannel(ctx context.Context, guildID int64) (string, bool, error) {
	var channelID string
	err := db.pool.QueryRow(ctx,
		"SELECT channel_id FROM guild_settings WHERE guild_id = $1",
		guildID,
	).Scan(&channelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query guild_settings: %w", err)
	}
	return channelID, true, nil
}

func (db *DB) SetAnnounceChannel(ctx context.Context, guildID int64, channelID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO guild_settings (guild_id, channel_id) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id, updated_at = now()`,
		guildID, channelID,
	)
	if err != nil {
		return fmt.Errorf("upsert guild_settings: %w", err)
	}
	return nil
}
