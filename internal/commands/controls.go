package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/player"
)

// HandleControl runs a control surface button press.
func HandleControl(s Responder, i *discordgo.InteractionCreate, d *player.Dispatcher) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to acknowledge button")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var messageID string
	if i.Message != nil {
		messageID = i.Message.ID
	}
	outcome, err := d.OnButton(ctx, player.ButtonInteraction{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		MessageID: messageID,
		ButtonID:  i.MessageComponentData().CustomID,
		UserID:    invoker(i),
	})
	switch {
	case err != nil:
		if k := player.KindOf(err); k != player.KindUserInput && k != player.KindStateConflict {
			log.Error().Str("module", "commands").Str("guild", i.GuildID).Err(err).Msg("control failed")
		}
		followupEphemeral(s, i, player.UserMessage(err))
	case outcome == player.NothingToSkip:
		followupEphemeral(s, i, "There is nothing to skip to!")
	}
}
