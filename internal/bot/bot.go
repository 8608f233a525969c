package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/commands"
	"github.com/susu3304/nkmzplayer/internal/player"
)

type Bot struct {
	session    *discordgo.Session
	controller *player.Controller
	dispatcher *player.Dispatcher
	history    commands.HistoryReader
}

func New(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{session: session}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)
	session.AddHandler(bot.onVoiceStateUpdate)
	session.AddHandler(bot.onVoiceServerUpdate)

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	return bot, nil
}

// Session exposes the discord session for the renderer and the gateway adapter.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Attach wires the player. history may be nil. It must be called before Start.
func (b *Bot) Attach(controller *player.Controller, dispatcher *player.Dispatcher, history commands.HistoryReader) {
	b.controller = controller
	b.dispatcher = dispatcher
	b.history = history
}

func (b *Bot) Start() error {
	if b.controller == nil || b.dispatcher == nil {
		return fmt.Errorf("bot started without a player")
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Info().Str("module", "bot").Msg("Discord bot is running")
	return nil
}

// UserID is the bot's own user id, known once Start returned.
func (b *Bot) UserID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

func (b *Bot) Stop() error {
	return b.session.Close()
}
