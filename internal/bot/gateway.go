package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Gateway answers voice questions from the state cache and sends voice
// state updates over the shard connection.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

func (g *Gateway) VoiceChannel(guildID, userID string) (string, bool) {
	vs, err := g.session.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// UpdateVoiceState joins channelID deafened, or leaves voice when it is empty.
func (g *Gateway) UpdateVoiceState(ctx context.Context, guildID, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.session.ChannelVoiceJoinManual(guildID, channelID, false, true)
}
