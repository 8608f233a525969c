package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const teardownTimeout = 10 * time.Second

// Session is the playback context bound to one guild's voice connection.
// Every exported method holds mu for its whole duration, including the
// gateway and node calls it makes, so operations on one Session never
// interleave.
type Session struct {
	id          string
	gateway     Gateway
	node        Node
	renderer    Renderer
	history     History
	registry    *Registry
	joinTimeout time.Duration
	log         zerolog.Logger

	mu             sync.Mutex
	state          State
	released       bool
	voiceChannelID string
	textChannelID  string
	queue          Queue
	nowPlaying     *Track
	// loading is the track handed to the node but not yet reported started.
	loading *Track
	surface *SurfaceRef
	paused  bool
}

func (c *Controller) newSession(guildID string) *Session {
	return &Session{
		id:          guildID,
		gateway:     c.gateway,
		node:        c.node,
		renderer:    c.renderer,
		history:     c.history,
		registry:    c.registry,
		joinTimeout: c.joinTimeout,
		log:         log.With().Str("module", "player.session").Str("guild", guildID).Logger(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Join connects the session to voiceChannelID. Control messages go to textChannelID.
// A failed join releases the session.
func (s *Session) Join(ctx context.Context, voiceChannelID, textChannelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return conflict("join", ErrSessionClosed)
	}
	if s.state != StateIdle {
		return conflict("join", ErrAlreadyConnected)
	}

	s.state = StateConnecting
	s.voiceChannelID = voiceChannelID
	s.textChannelID = textChannelID
	s.log.Info().Str("channel", voiceChannelID).Msg("joining voice channel")

	if err := s.gateway.UpdateVoiceState(ctx, s.id, voiceChannelID); err != nil {
		s.abortJoin(ctx)
		return collaborator("join", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.joinTimeout)
	creds, err := s.node.AwaitCredentials(waitCtx, s.id)
	cancel()
	if err != nil {
		s.abortJoin(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Op: "join", Kind: KindTimeout, Err: ErrConnectionTimeout}
		}
		return collaborator("join", err)
	}

	if err := s.node.Connect(ctx, s.id, creds); err != nil {
		s.abortJoin(ctx)
		return collaborator("join", err)
	}

	s.state = StateConnected
	s.log.Info().Str("channel", voiceChannelID).Msg("voice connection ready")
	return nil
}

func (s *Session) abortJoin(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if err := s.node.Disconnect(cctx, s.id); err != nil {
		s.log.Warn().Err(err).Msg("failed to release node player after join failure")
	}
	if err := s.gateway.UpdateVoiceState(cctx, s.id, ""); err != nil {
		s.log.Warn().Err(err).Msg("failed to leave voice after join failure")
	}
	s.release()
}

// Enqueue appends t and returns its position, 1 being the playing track.
// On an empty connected session t starts playing at once.
func (s *Session) Enqueue(ctx context.Context, t Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return 0, conflict("enqueue", ErrSessionClosed)
	}
	if !s.state.Connected() {
		return 0, conflict("enqueue", ErrNotConnected)
	}

	if s.state == StateConnected {
		if err := s.node.Play(ctx, s.id, t); err != nil {
			return 0, collaborator("enqueue", err)
		}
		s.nowPlaying = &t
		s.loading = &t
		s.paused = false
		s.state = StatePlaying
		s.log.Info().Str("track", t.Title).Msg("playing")
		return 1, nil
	}

	pos := s.queue.Push(t) + 1
	s.log.Debug().Str("track", t.Title).Int("position", pos).Msg("queued")
	return pos, nil
}

// OnTrackStart replaces the control message for the track the node started.
func (s *Session) OnTrackStart(ctx context.Context, t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || !s.state.Connected() {
		s.log.Debug().Str("track", t.Title).Msg("track start on inactive session dropped")
		return
	}
	cur, ok := s.current(t)
	if !ok {
		s.log.Debug().Str("track", t.Title).Msg("stale track start dropped")
		return
	}

	s.destroySurface(ctx)

	s.nowPlaying = &cur
	s.loading = nil
	s.paused = false
	s.state = StatePlaying

	msgID, err := s.renderer.Create(ctx, s.textChannelID, s.view())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create control message")
	} else {
		s.surface = &SurfaceRef{ChannelID: s.textChannelID, MessageID: msgID}
	}

	if s.history != nil {
		if err := s.history.RecordPlay(ctx, s.id, cur); err != nil {
			s.log.Warn().Err(err).Msg("failed to record play")
		}
	}
	s.log.Info().Str("track", cur.Title).Msg("track started")
}

// OnTrackEnd advances the queue when the current track finished or failed to load.
func (s *Session) OnTrackEnd(ctx context.Context, t Track, reason EndReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || !s.state.Connected() || !reason.MayStartNext() {
		return
	}
	if _, ok := s.current(t); !ok {
		s.log.Debug().Str("track", t.Title).Str("reason", string(reason)).Msg("stale track end dropped")
		return
	}
	s.advance(ctx, false)
}

// OnTrackException skips the failing track; an exhausted queue stops the node player.
func (s *Session) OnTrackException(ctx context.Context, t Track, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || !s.state.Connected() {
		return
	}
	if _, ok := s.current(t); !ok {
		return
	}
	s.log.Warn().Str("track", t.Title).Str("error", message).Msg("track exception")
	s.advance(ctx, true)
}

// advance hands the next playable queued track to the node, or returns the
// session to connected-empty when the queue runs out.
func (s *Session) advance(ctx context.Context, stopNode bool) {
	for {
		next, ok := s.queue.Pop()
		if !ok {
			break
		}
		if err := s.node.Play(ctx, s.id, next); err != nil {
			s.log.Warn().Err(err).Str("track", next.Title).Msg("skipping track the node refused")
			continue
		}
		s.loading = &next
		s.unpause(ctx)
		return
	}

	if stopNode {
		if err := s.node.Stop(ctx, s.id); err != nil {
			s.log.Warn().Err(err).Msg("failed to stop node player")
		}
	}
	s.destroySurface(ctx)
	s.nowPlaying = nil
	s.loading = nil
	s.paused = false
	s.state = StateConnected
	s.log.Info().Msg("queue finished")
}

func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pause(ctx)
}

func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume(ctx)
}

func (s *Session) pause(ctx context.Context) error {
	if s.released || s.state != StatePlaying {
		return conflict("pause", ErrNotPlaying)
	}
	if err := s.node.Pause(ctx, s.id, true); err != nil {
		return collaborator("pause", err)
	}
	s.paused = true
	s.state = StatePaused
	s.refreshSurface(ctx)
	return nil
}

func (s *Session) resume(ctx context.Context) error {
	if s.released || s.state != StatePaused {
		return conflict("resume", ErrNotPlaying)
	}
	if err := s.node.Pause(ctx, s.id, false); err != nil {
		return collaborator("resume", err)
	}
	s.paused = false
	s.state = StatePlaying
	s.refreshSurface(ctx)
	return nil
}

// unpause records that a node load resumed playback.
func (s *Session) unpause(ctx context.Context) {
	if !s.paused {
		return
	}
	s.paused = false
	s.state = StatePlaying
	s.refreshSurface(ctx)
}

func (s *Session) togglePause(ctx context.Context) error {
	if s.state == StatePaused {
		return s.resume(ctx)
	}
	return s.pause(ctx)
}

// Skip asks the node to play the next queued track. The node's track start
// report, not Skip, moves nowPlaying.
func (s *Session) Skip(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip(ctx)
}

func (s *Session) skip(ctx context.Context) (Outcome, error) {
	if s.released || !s.state.Connected() {
		return Done, conflict("skip", ErrNotConnected)
	}
	next, ok := s.queue.Peek()
	if !ok {
		return NothingToSkip, nil
	}
	if err := s.node.Play(ctx, s.id, next); err != nil {
		return Done, collaborator("skip", err)
	}
	s.queue.Pop()
	s.loading = &next
	s.unpause(ctx)
	s.log.Info().Str("track", next.Title).Msg("skipping to next track")
	return Done, nil
}

// leaveIfIdle stops a session that is connected but has nothing playing,
// queued or loading. It undoes a join whose first track never reached the node.
func (s *Session) leaveIfIdle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || s.state != StateConnected || s.queue.Len() > 0 || s.loading != nil {
		return
	}
	if err := s.stop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to roll back join")
	}
}

// Stop tears the session down and removes it from the registry. Teardown
// failures are logged, never returned.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop(ctx)
}

func (s *Session) stop(ctx context.Context) error {
	if s.released || s.state == StateIdle {
		return conflict("stop", ErrNotConnected)
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if err := s.node.Disconnect(cctx, s.id); err != nil {
		s.log.Warn().Err(err).Msg("failed to disconnect node player")
	}
	if err := s.gateway.UpdateVoiceState(cctx, s.id, ""); err != nil {
		s.log.Warn().Err(err).Msg("failed to leave voice channel")
	}
	s.destroySurface(cctx)
	s.queue.Clear()
	s.nowPlaying = nil
	s.loading = nil
	s.paused = false
	s.release()
	s.log.Info().Msg("session stopped")
	return nil
}

// Control runs a button action, provided messageID is the live control message.
func (s *Session) Control(ctx context.Context, action Action, messageID string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || s.surface == nil || s.surface.MessageID != messageID {
		return Done, userInput(string(action), ErrStaleSurface)
	}

	switch action {
	case ActionStop:
		return Done, s.stop(ctx)
	case ActionToggle:
		return Done, s.togglePause(ctx)
	case ActionSkip:
		return s.skip(ctx)
	}
	return Done, userInput(string(action), errors.New("unknown control"))
}

// Snapshot is a point-in-time copy of a Session.
type Snapshot struct {
	GuildID    string      `json:"guild_id"`
	State      State       `json:"state"`
	Paused     bool        `json:"paused"`
	NowPlaying *Track      `json:"now_playing,omitempty"`
	Queue      []Track     `json:"queue"`
	Surface    *SurfaceRef `json:"surface,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GuildID: s.id,
		State:   s.state,
		Paused:  s.paused,
		Queue:   s.queue.Tracks(),
	}
	if s.nowPlaying != nil {
		t := *s.nowPlaying
		snap.NowPlaying = &t
	}
	if s.surface != nil {
		ref := *s.surface
		snap.Surface = &ref
	}
	return snap
}

// Pages renders the queue as it is right now.
func (s *Session) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildPages(s.nowPlaying, s.queue.Tracks())
}

// current resolves an event track against the track being loaded, or the
// playing one when no load is in flight. It returns the locally held copy,
// which carries the requester.
func (s *Session) current(t Track) (Track, bool) {
	if s.loading != nil {
		return *s.loading, s.loading.Same(t)
	}
	if s.nowPlaying != nil && s.nowPlaying.Same(t) {
		return *s.nowPlaying, true
	}
	return Track{}, false
}

func (s *Session) view() View {
	v := View{GuildID: s.id, Paused: s.paused}
	if s.nowPlaying != nil {
		v.Track = *s.nowPlaying
	}
	return v
}

func (s *Session) refreshSurface(ctx context.Context) {
	if s.surface == nil {
		return
	}
	if err := s.renderer.Update(ctx, *s.surface, s.view()); err != nil {
		s.log.Warn().Err(err).Msg("failed to edit control message")
	}
}

func (s *Session) destroySurface(ctx context.Context) {
	if s.surface == nil {
		return
	}
	if err := s.renderer.Destroy(ctx, *s.surface); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete control message")
	}
	s.surface = nil
}

// release marks the session dead and drops it from the registry.
func (s *Session) release() {
	s.state = StateIdle
	s.released = true
	if s.registry != nil {
		s.registry.Remove(s.id, s)
	}
}
