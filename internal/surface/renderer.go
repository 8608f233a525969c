package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/player"
)

const sendTimeout = 12 * time.Second

// EmbedColor is used by every embed the bot sends.
const EmbedColor = 0x9ACD32

// Button emojis.
var (
	EmojiStop  = discordgo.ComponentEmoji{Name: "⏹️"}
	EmojiPause = discordgo.ComponentEmoji{Name: "⏸️"}
	EmojiPlay  = discordgo.ComponentEmoji{Name: "▶️"}
	EmojiNext  = discordgo.ComponentEmoji{Name: "⏭️"}
)

// Messenger is the subset of *discordgo.Session the renderer needs.
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Renderer posts and maintains control messages in text channels.
type Renderer struct {
	session Messenger
}

func NewRenderer(session Messenger) *Renderer {
	return &Renderer{session: session}
}

func (r *Renderer) Create(ctx context.Context, channelID string, v player.View) (string, error) {
	data := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{NowPlayingEmbed(v)},
		Components: Controls(v),
	}

	// Never resent: a timed out send may still have created the message.
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	msg, err := r.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(sendCtx))
	if err != nil {
		log.Warn().Str("module", "surface").Str("guild", v.GuildID).Err(err).Msg("control message send failed")
		return "", fmt.Errorf("failed to send control message: %w", err)
	}
	return msg.ID, nil
}

func (r *Renderer) Update(ctx context.Context, ref player.SurfaceRef, v player.View) error {
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID)
	edit.Embeds = []*discordgo.MessageEmbed{NowPlayingEmbed(v)}
	edit.Components = Controls(v)
	if _, err := r.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit control message: %w", err)
	}
	return nil
}

func (r *Renderer) Destroy(ctx context.Context, ref player.SurfaceRef) error {
	err := r.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err == nil || isUnknownMessage(err) {
		return nil
	}
	return fmt.Errorf("failed to delete control message: %w", err)
}

// Controls renders the stop, pause/resume and skip buttons bound to v.GuildID.
func Controls(v player.View) []discordgo.MessageComponent {
	toggle := EmojiPause
	if v.Paused {
		toggle = EmojiPlay
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style:    discordgo.DangerButton,
					Emoji:    EmojiStop,
					CustomID: player.ButtonID(player.ActionStop, v.GuildID),
				},
				discordgo.Button{
					Style:    discordgo.PrimaryButton,
					Emoji:    toggle,
					CustomID: player.ButtonID(player.ActionToggle, v.GuildID),
				},
				discordgo.Button{
					Style:    discordgo.SuccessButton,
					Emoji:    EmojiNext,
					CustomID: player.ButtonID(player.ActionSkip, v.GuildID),
				},
			},
		},
	}
}

func NowPlayingEmbed(v player.View) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("**Now Playing**: %s", player.TrackLine(v.Track))
	if v.Track.RequesterID != "" {
		desc += fmt.Sprintf("\nRequested by <@%s>", v.Track.RequesterID)
	}
	if v.Paused {
		desc += "\n*Paused*"
	}
	return &discordgo.MessageEmbed{Description: desc, Color: EmbedColor}
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
