package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/player"
	"github.com/susu3304/nkmzplayer/internal/surface"
)

func HandleQueue(s Responder, i *discordgo.InteractionCreate, c *player.Controller) {
	pages, err := c.Pages(i.GuildID)
	if err != nil {
		respondEphemeral(s, i, player.UserMessage(err))
		return
	}

	e, components := surface.QueueMessage(i.GuildID, pages, 1)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{e},
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to send queue")
	}
}

// HandleQueuePage turns a queue page. The queue is read again, so the page
// shows the queue as it is now.
func HandleQueuePage(s Responder, i *discordgo.InteractionCreate, c *player.Controller) {
	guildID, page, ok := surface.ParsePagerID(i.MessageComponentData().CustomID)
	if !ok || guildID != i.GuildID {
		return
	}

	var (
		e          *discordgo.MessageEmbed
		components []discordgo.MessageComponent
	)
	pages, err := c.Pages(guildID)
	if err != nil {
		e = embed(player.UserMessage(err))
		components = []discordgo.MessageComponent{}
	} else {
		e, components = surface.QueueMessage(guildID, pages, page)
		if components == nil {
			components = []discordgo.MessageComponent{}
		}
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{e},
			Components: components,
		},
	})
	if err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to turn queue page")
	}
}
