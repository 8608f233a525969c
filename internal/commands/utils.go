package commands

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/surface"
)

// Responder is the subset of *discordgo.Session command handlers use.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	HeartbeatLatency() time.Duration
}

func embed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: description, Color: surface.EmbedColor}
}

// respondEphemeral answers the interaction with a caller-only embed.
func respondEphemeral(s Responder, i *discordgo.InteractionCreate, description string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed(description)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to respond to interaction")
	}
}

// deferEphemeral acknowledges a command whose answer takes longer than
// Discord's response window.
func deferEphemeral(s Responder, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func editResponse(s Responder, i *discordgo.InteractionCreate, description string) {
	embeds := []*discordgo.MessageEmbed{embed(description)}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to edit interaction response")
	}
}

// followupEphemeral reports to the caller after a deferred update.
func followupEphemeral(s Responder, i *discordgo.InteractionCreate, description string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed(description)},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Warn().Str("module", "commands").Err(err).Msg("failed to send followup")
	}
}

// invoker returns the id of the user behind the interaction.
func invoker(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
