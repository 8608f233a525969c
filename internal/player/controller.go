package player

import (
	"context"
	"errors"
	"time"
)

const DefaultJoinTimeout = 10 * time.Second

type Options struct {
	Gateway  Gateway
	Node     Node
	Renderer Renderer
	// History is optional.
	History     History
	Registry    *Registry
	JoinTimeout time.Duration
}

// Controller runs user commands against the registry's sessions.
type Controller struct {
	gateway     Gateway
	node        Node
	renderer    Renderer
	history     History
	registry    *Registry
	joinTimeout time.Duration
}

func NewController(opts Options) *Controller {
	c := &Controller{
		gateway:     opts.Gateway,
		node:        opts.Node,
		renderer:    opts.Renderer,
		history:     opts.History,
		registry:    opts.Registry,
		joinTimeout: opts.JoinTimeout,
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.joinTimeout <= 0 {
		c.joinTimeout = DefaultJoinTimeout
	}
	return c
}

func (c *Controller) Registry() *Registry {
	return c.registry
}

type PlayRequest struct {
	GuildID       string
	UserID        string
	TextChannelID string
	Query         string
}

type PlayResult struct {
	Track    Track
	Position int
}

// Play resolves the query, joins the user's voice channel when the guild has
// no session yet, and enqueues the first result.
func (c *Controller) Play(ctx context.Context, req PlayRequest) (PlayResult, error) {
	voiceChannelID, ok := c.gateway.VoiceChannel(req.GuildID, req.UserID)
	if !ok || voiceChannelID == "" {
		return PlayResult{}, userInput("play", ErrNoVoiceState)
	}

	tracks, err := c.node.Search(ctx, req.Query)
	if err != nil {
		return PlayResult{}, collaborator("play", err)
	}
	if len(tracks) == 0 {
		return PlayResult{}, userInput("play", ErrNoResults)
	}
	track := tracks[0]
	track.RequesterID = req.UserID

	// A session released between lookup and use is replaced once.
	for attempt := 0; attempt < 2; attempt++ {
		s, _ := c.registry.GetOrCreate(req.GuildID, func() *Session {
			return c.newSession(req.GuildID)
		})

		err := s.Join(ctx, voiceChannelID, req.TextChannelID)
		if errors.Is(err, ErrSessionClosed) {
			continue
		}
		if err != nil && !errors.Is(err, ErrAlreadyConnected) {
			return PlayResult{}, err
		}
		joined := err == nil

		pos, err := s.Enqueue(ctx, track)
		if errors.Is(err, ErrSessionClosed) {
			continue
		}
		if err != nil {
			if joined {
				s.leaveIfIdle(ctx)
			}
			return PlayResult{}, err
		}
		return PlayResult{Track: track, Position: pos}, nil
	}
	return PlayResult{}, conflict("play", ErrSessionClosed)
}

func (c *Controller) session(op, guildID string) (*Session, error) {
	s, ok := c.registry.Get(guildID)
	if !ok {
		return nil, conflict(op, ErrNotConnected)
	}
	return s, nil
}

func (c *Controller) Pause(ctx context.Context, guildID string) error {
	s, err := c.session("pause", guildID)
	if err != nil {
		return err
	}
	return s.Pause(ctx)
}

func (c *Controller) Resume(ctx context.Context, guildID string) error {
	s, err := c.session("resume", guildID)
	if err != nil {
		return err
	}
	return s.Resume(ctx)
}

func (c *Controller) Skip(ctx context.Context, guildID string) (Outcome, error) {
	s, err := c.session("skip", guildID)
	if err != nil {
		return Done, err
	}
	return s.Skip(ctx)
}

func (c *Controller) Stop(ctx context.Context, guildID string) error {
	s, err := c.session("stop", guildID)
	if err != nil {
		return err
	}
	return s.Stop(ctx)
}

// Pages returns the guild's queue pages, or ErrNothingQueued.
func (c *Controller) Pages(guildID string) ([]Page, error) {
	s, ok := c.registry.Get(guildID)
	if !ok {
		return nil, userInput("queue", ErrNothingQueued)
	}
	pages := s.Pages()
	if len(pages) == 0 {
		return nil, userInput("queue", ErrNothingQueued)
	}
	return pages, nil
}

func (c *Controller) Snapshot(guildID string) (Snapshot, bool) {
	s, ok := c.registry.Get(guildID)
	if !ok {
		return Snapshot{GuildID: guildID, State: StateIdle, Queue: []Track{}}, false
	}
	return s.Snapshot(), true
}

// Shutdown disconnects every live session.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.registry.Shutdown(ctx)
}
