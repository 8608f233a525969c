package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/player"
)

const commandTimeout = 30 * time.Second

func HandlePlay(s Responder, i *discordgo.InteractionCreate, c *player.Controller) {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}
	if query == "" {
		respondEphemeral(s, i, "No results for this query found!")
		return
	}

	if err := deferEphemeral(s, i); err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to defer play")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := c.Play(ctx, player.PlayRequest{
		GuildID:       i.GuildID,
		UserID:        invoker(i),
		TextChannelID: i.ChannelID,
		Query:         query,
	})
	if err != nil {
		if player.KindOf(err) != player.KindUserInput {
			log.Error().Str("module", "commands").Str("guild", i.GuildID).Err(err).Msg("play failed")
		}
		editResponse(s, i, player.UserMessage(err))
		return
	}
	editResponse(s, i, playedMessage(res))
}

func playedMessage(res player.PlayResult) string {
	msg := fmt.Sprintf("Added [%s](%s) to the queue!", res.Track.Title, res.Track.URI)
	if res.Position > 1 {
		msg += fmt.Sprintf(" Position: `%d`", res.Position-1)
	}
	return msg
}
