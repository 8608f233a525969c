package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/commands"
	"github.com/susu3304/nkmzplayer/internal/player"
	"github.com/susu3304/nkmzplayer/internal/surface"
)

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Info().Str("module", "bot").Str("user", event.User.Username).Msg("connected")

	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			log.Error().Str("module", "bot").Str("guild", guild.ID).Err(err).Msg("failed to register commands")
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	log.Info().Str("module", "bot").Str("guild", event.ID).Str("name", event.Name).Msg("guild available, ensuring commands")
	if err := b.registerGuildCommands(event.ID); err != nil {
		log.Error().Str("module", "bot").Str("guild", event.ID).Err(err).Msg("failed to register commands")
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}
	log.Debug().Str("module", "bot").Str("guild", guildID).Msg("registered application commands")
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleApplicationCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

func (b *Bot) handleApplicationCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "play":
		commands.HandlePlay(s, i, b.controller)
	case "queue":
		commands.HandleQueue(s, i, b.controller)
	case "history":
		commands.HandleHistory(s, i, b.history)
	case "ping":
		commands.HandlePing(s, i)
	}
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := i.MessageComponentData().CustomID
	switch {
	case player.IsButtonID(id):
		commands.HandleControl(s, i, b.dispatcher)
	case surface.IsPagerID(id):
		commands.HandleQueuePage(s, i, b.controller)
	}
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil {
		return
	}
	b.dispatcher.OnVoiceStateUpdate(player.VoiceStateUpdate{
		GuildID:   v.GuildID,
		UserID:    v.UserID,
		SessionID: v.SessionID,
		ChannelID: v.ChannelID,
	})
}

func (b *Bot) onVoiceServerUpdate(s *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	b.dispatcher.OnVoiceServerUpdate(player.VoiceServerUpdate{
		GuildID:  v.GuildID,
		Endpoint: v.Endpoint,
		Token:    v.Token,
	})
}
