package db

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/susu3304/nkmzplayer/internal/player"
)

// MaxHistory caps how many plays a single query returns.
const MaxHistory = 50

type Play struct {
	GuildID     snowflake.ID  `json:"guild_id"`
	Title       string        `json:"title"`
	URI         string        `json:"uri"`
	LengthMs    int64         `json:"length_ms"`
	RequesterID *snowflake.ID `json:"requester_id,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
}

// RecordPlay stores a started track.
func (db *DB) RecordPlay(ctx context.Context, guildID string, t player.Track) error {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return fmt.Errorf("invalid guild id %q: %w", guildID, err)
	}
	requester, err := optionalID(t.RequesterID)
	if err != nil {
		return fmt.Errorf("invalid requester id %q: %w", t.RequesterID, err)
	}

	_, err = db.pool.Exec(ctx,
		"INSERT INTO play_history (guild_id, title, uri, length_ms, requester_id) VALUES ($1, $2, $3, $4, $5)",
		int64(gid), t.Title, t.URI, t.LengthMs, requester,
	)
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// RecentPlays returns the guild's most recent plays, newest first.
func (db *DB) RecentPlays(ctx context.Context, guildID string, limit int) ([]Play, error) {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, fmt.Errorf("invalid guild id %q: %w", guildID, err)
	}
	limit = clampLimit(limit)

	rows, err := db.pool.Query(ctx,
		"SELECT title, uri, length_ms, requester_id, started_at FROM play_history WHERE guild_id = $1 ORDER BY started_at DESC LIMIT $2",
		int64(gid), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plays := []Play{}
	for rows.Next() {
		p := Play{GuildID: gid}
		var requester *int64
		if err := rows.Scan(&p.Title, &p.URI, &p.LengthMs, &requester, &p.StartedAt); err != nil {
			return nil, err
		}
		if requester != nil {
			id := snowflake.ID(*requester)
			p.RequesterID = &id
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

func optionalID(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := snowflake.Parse(s)
	if err != nil {
		return nil, err
	}
	v := int64(id)
	return &v, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxHistory {
		return MaxHistory
	}
	return limit
}
