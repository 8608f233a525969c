package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func HandlePing(s Responder, i *discordgo.InteractionCreate) {
	latency := float64(s.HeartbeatLatency().Microseconds()) / 1000
	respondEphemeral(s, i, fmt.Sprintf("**Pong!**\n`Latency:` %.2fms.", latency))
}
