package player

import "context"

// Credentials are the voice connection details the audio node needs to
// stream into a guild's voice channel.
type Credentials struct {
	SessionID string
	ChannelID string
	Endpoint  string
	Token     string
}

// Complete reports whether both the voice state and voice server halves arrived.
func (c Credentials) Complete() bool {
	return c.SessionID != "" && c.Endpoint != "" && c.Token != ""
}

// Gateway is the chat gateway as seen by a Session.
type Gateway interface {
	// VoiceChannel returns the voice channel the user is connected to.
	VoiceChannel(guildID, userID string) (string, bool)
	// UpdateVoiceState joins channelID, or leaves voice when channelID is empty.
	UpdateVoiceState(ctx context.Context, guildID, channelID string) error
}

// Node is the audio node: search, streaming and the credential handshake.
type Node interface {
	Search(ctx context.Context, query string) ([]Track, error)
	// Play replaces whatever the guild's node player is playing.
	Play(ctx context.Context, guildID string, t Track) error
	Pause(ctx context.Context, guildID string, paused bool) error
	Stop(ctx context.Context, guildID string) error
	Connect(ctx context.Context, guildID string, creds Credentials) error
	Disconnect(ctx context.Context, guildID string) error
	AwaitCredentials(ctx context.Context, guildID string) (Credentials, error)
}

// SurfaceRef identifies a live control message.
type SurfaceRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// View is what the control surface shows.
type View struct {
	GuildID string
	Track   Track
	Paused  bool
}

// Renderer owns control messages. Destroy treats a missing message as success.
type Renderer interface {
	Create(ctx context.Context, channelID string, v View) (string, error)
	Update(ctx context.Context, ref SurfaceRef, v View) error
	Destroy(ctx context.Context, ref SurfaceRef) error
}

// History records started tracks.
type History interface {
	RecordPlay(ctx context.Context, guildID string, t Track) error
}
