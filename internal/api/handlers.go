package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/nkmzplayer/internal/db"
	"github.com/susu3304/nkmzplayer/internal/player"
)

func guildIDFrom(r *http.Request) (string, bool) {
	id, err := snowflake.Parse(mux.Vars(r)["guild_id"])
	if err != nil || id == 0 {
		return "", false
	}
	return id.String(), true
}

// Public handlers
func (a *API) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid guild_id")
		return
	}

	snap, _ := a.player.Snapshot(guildID)
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid guild_id")
		return
	}
	if a.history == nil {
		writeError(w, http.StatusNotFound, "play history is not enabled")
		return
	}

	limit := db.MaxHistory
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	plays, err := a.history.RecentPlays(r.Context(), guildID, limit)
	if err != nil {
		log.Error().Str("module", "api").Str("guild", guildID).Err(err).Msg("failed to load history")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, plays)
}

// Protected handlers
func (a *API) handleUserGuilds(w http.ResponseWriter, r *http.Request) {
	guilds, err := a.getDiscordGuilds(r.Context(), accessTokenFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to get guilds: "+err.Error())
		return
	}

	type guildPlayer struct {
		DiscordGuild
		State player.State `json:"state"`
	}
	out := make([]guildPlayer, 0, len(guilds))
	for _, g := range guilds {
		snap, _ := a.player.Snapshot(g.ID)
		out = append(out, guildPlayer{DiscordGuild: g, State: snap.State})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handlePlayerControl(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	guildID, ok := guildIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid guild_id")
		return
	}

	if !a.userHasGuildAccess(r.Context(), accessTokenFrom(r.Context()), guildID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	ctx := r.Context()
	outcome := player.Done
	var err error
	switch action := mux.Vars(r)["action"]; action {
	case "pause":
		err = a.player.Pause(ctx, guildID)
	case "resume":
		err = a.player.Resume(ctx, guildID)
	case "skip":
		outcome, err = a.player.Skip(ctx, guildID)
	case "stop":
		err = a.player.Stop(ctx, guildID)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		writeError(w, statusFor(err), player.UserMessage(err))
		return
	}
	if outcome == player.NothingToSkip {
		writeError(w, http.StatusConflict, "There is nothing to skip to!")
		return
	}

	log.Info().Str("module", "api").Str("guild", guildID).Str("user", claims.UserID).Str("action", mux.Vars(r)["action"]).Msg("player control")
	snap, _ := a.player.Snapshot(guildID)
	writeJSON(w, http.StatusOK, snap)
}

func statusFor(err error) int {
	switch player.KindOf(err) {
	case player.KindUserInput, player.KindStateConflict:
		return http.StatusConflict
	case player.KindTimeout:
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout
	}
	return http.StatusBadGateway
}

func (a *API) userHasGuildAccess(ctx context.Context, accessToken, guildID string) bool {
	guilds, err := a.getDiscordGuilds(ctx, accessToken)
	if err != nil {
		return false
	}

	for _, guild := range guilds {
		if guild.ID == guildID {
			return true
		}
	}
	return false
}
