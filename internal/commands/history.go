package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/db"
	"github.com/susu3304/nkmzplayer/internal/player"
)

const historyLimit = 10

// HistoryReader lists recorded plays.
type HistoryReader interface {
	RecentPlays(ctx context.Context, guildID string, limit int) ([]db.Play, error)
}

func HandleHistory(s Responder, i *discordgo.InteractionCreate, h HistoryReader) {
	if h == nil {
		respondEphemeral(s, i, "Play history is not enabled.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	plays, err := h.RecentPlays(ctx, i.GuildID, historyLimit)
	if err != nil {
		log.Error().Str("module", "commands").Str("guild", i.GuildID).Err(err).Msg("failed to load history")
		respondEphemeral(s, i, "Failed to load play history.")
		return
	}
	if len(plays) == 0 {
		respondEphemeral(s, i, "Nothing has been played yet!")
		return
	}
	respondEphemeral(s, i, historyMessage(plays))
}

func historyMessage(plays []db.Play) string {
	var b strings.Builder
	b.WriteString("**Recently Played**")
	for n, p := range plays {
		t := player.Track{Title: p.Title, URI: p.URI, LengthMs: p.LengthMs}
		fmt.Fprintf(&b, "\n`%d.` %s <t:%d:R>", n+1, player.TrackLine(t), p.StartedAt.Unix())
	}
	return b.String()
}
