package database

import "time"

// StatusMessage records which Discord message in a channel is the live
// status message owned by this bot.
type StatusMessage struct {
	ChannelID string    `db:"channel_id"`
	MessageID string    `db:"message_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
