package lavalink

import (
	"encoding/json"

	"github.com/susu3304/nkmzplayer/internal/player"
)

type trackInfo struct {
	Identifier string `json:"identifier"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	SourceName string `json:"sourceName"`
}

type apiTrack struct {
	Encoded  string          `json:"encoded"`
	Info     trackInfo       `json:"info"`
	UserData json.RawMessage `json:"userData,omitempty"`
}

type userData struct {
	RequesterID string `json:"requesterId,omitempty"`
}

func (t apiTrack) toTrack() player.Track {
	out := player.Track{
		Encoded:  t.Encoded,
		Title:    t.Info.Title,
		URI:      t.Info.URI,
		LengthMs: t.Info.Length,
	}
	if len(t.UserData) > 0 {
		var ud userData
		if err := json.Unmarshal(t.UserData, &ud); err == nil {
			out.RequesterID = ud.RequesterID
		}
	}
	return out
}

type exception struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

type loadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistData struct {
	Tracks []apiTrack `json:"tracks"`
}

// message is any frame received on the node websocket.
type message struct {
	Op string `json:"op"`

	// ready
	SessionID string `json:"sessionId"`
	Resumed   bool   `json:"resumed"`

	// event and playerUpdate
	GuildID string `json:"guildId"`

	// event
	Type        string     `json:"type"`
	Track       *apiTrack  `json:"track"`
	Reason      string     `json:"reason"`
	Exception   *exception `json:"exception"`
	ThresholdMs int64      `json:"thresholdMs"`
	Code        int        `json:"code"`
	ByRemote    bool       `json:"byRemote"`

	// stats
	Players        int `json:"players"`
	PlayingPlayers int `json:"playingPlayers"`
}

type voiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

type trackUpdate struct {
	// A nil Encoded is sent as null and stops the player.
	Encoded  *string   `json:"encoded"`
	UserData *userData `json:"userData,omitempty"`
}

type playerUpdate struct {
	Track  *trackUpdate `json:"track,omitempty"`
	Paused *bool        `json:"paused,omitempty"`
	Voice  *voiceState  `json:"voice,omitempty"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}
