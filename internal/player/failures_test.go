package player

import (
	"context"
	"errors"
	"testing"
)

func playRequest(query string) PlayRequest {
	return PlayRequest{GuildID: testGuild, UserID: testUser, TextChannelID: "text-1", Query: query}
}

func TestPlayRefusedOnFreshJoinLeavesVoice(t *testing.T) {
	h := newHarness()
	h.node.playErr = errors.New("node unavailable")

	_, err := h.c.Play(context.Background(), playRequest("t0"))
	if KindOf(err) != KindCollaborator {
		t.Fatalf("error = %v, want collaborator", err)
	}
	if h.c.Registry().Len() != 0 {
		t.Errorf("registry has %d sessions, want 0", h.c.Registry().Len())
	}
	updates := h.gateway.Updates()
	if len(updates) != 2 || updates[0] != "voice-1" || updates[1] != "" {
		t.Errorf("voice updates = %q, want join then leave", updates)
	}
	if h.node.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", h.node.disconnects)
	}
}

func TestPlayRefusedOnConnectedSessionKeepsState(t *testing.T) {
	h := newHarness()
	h.play(t, "t0")
	s := h.session(t)
	ctx := context.Background()
	s.OnTrackStart(ctx, testTrack("t0"))
	s.OnTrackEnd(ctx, testTrack("t0"), EndFinished)

	h.node.playErr = errors.New("node unavailable")
	if _, err := h.c.Play(ctx, playRequest("t1")); KindOf(err) != KindCollaborator {
		t.Fatalf("error = %v, want collaborator", err)
	}

	snap := s.Snapshot()
	if snap.State != StateConnected || snap.NowPlaying != nil || len(snap.Queue) != 0 {
		t.Errorf("snapshot = %+v, want connected and empty", snap)
	}
	if h.c.Registry().Len() != 1 || h.node.disconnects != 0 {
		t.Errorf("session torn down: registry=%d disconnects=%d", h.c.Registry().Len(), h.node.disconnects)
	}
}

func TestAdvanceSkipsRefusedTrack(t *testing.T) {
	h := newHarness()
	for _, q := range []string{"t0", "t1", "t2"} {
		h.play(t, q)
	}
	s := h.session(t)
	ctx := context.Background()
	s.OnTrackStart(ctx, testTrack("t0"))

	h.node.refuse = map[string]bool{"t1": true}
	s.OnTrackEnd(ctx, testTrack("t0"), EndFinished)

	played := h.node.Played()
	if len(played) != 2 || played[1].Title != "t2" {
		t.Fatalf("node played %+v, want t0 then t2", played)
	}
	if snap := s.Snapshot(); len(snap.Queue) != 0 {
		t.Errorf("queue = %+v, want empty", snap.Queue)
	}
	s.OnTrackStart(ctx, testTrack("t2"))
	if snap := s.Snapshot(); snap.NowPlaying == nil || snap.NowPlaying.Title != "t2" {
		t.Errorf("now playing = %+v, want t2", snap.NowPlaying)
	}
}

func TestSkipRefusedLeavesQueue(t *testing.T) {
	h := newHarness()
	h.play(t, "t0")
	h.play(t, "t1")
	s := h.session(t)
	ctx := context.Background()
	s.OnTrackStart(ctx, testTrack("t0"))

	h.node.playErr = errors.New("node unavailable")
	if _, err := s.Skip(ctx); KindOf(err) != KindCollaborator {
		t.Fatalf("Skip() error = %v, want collaborator", err)
	}
	snap := s.Snapshot()
	if len(snap.Queue) != 1 || snap.Queue[0].Title != "t1" {
		t.Errorf("queue = %+v, want [t1]", snap.Queue)
	}

	// Nothing is loading, so a start for t1 is not ours.
	h.node.playErr = nil
	s.OnTrackStart(ctx, testTrack("t1"))
	if snap := s.Snapshot(); snap.NowPlaying.Title != "t0" {
		t.Errorf("now playing = %q, want t0", snap.NowPlaying.Title)
	}
}

func TestTrackStartWithoutSurface(t *testing.T) {
	h := newHarness()
	h.renderer.createErr = errors.New("missing permissions")
	h.play(t, "t0")
	s := h.session(t)
	ctx := context.Background()

	s.OnTrackStart(ctx, testTrack("t0"))

	snap := s.Snapshot()
	if snap.State != StatePlaying || snap.NowPlaying == nil || snap.NowPlaying.Title != "t0" {
		t.Errorf("snapshot = %+v, want t0 playing", snap)
	}
	if snap.Surface != nil {
		t.Errorf("surface = %+v, want none", snap.Surface)
	}
	if _, err := s.Control(ctx, ActionSkip, "msg-1"); !errors.Is(err, ErrStaleSurface) {
		t.Errorf("Control() error = %v, want ErrStaleSurface", err)
	}
	if err := s.Pause(ctx); err != nil {
		t.Errorf("Pause() error = %v", err)
	}
}

func TestJoinGatewayFailureReleasesSession(t *testing.T) {
	h := newHarness()
	h.gateway.joinErr = errors.New("gateway closed")

	_, err := h.c.Play(context.Background(), playRequest("t0"))
	if KindOf(err) != KindCollaborator {
		t.Fatalf("error = %v, want collaborator", err)
	}
	if h.c.Registry().Len() != 0 {
		t.Errorf("registry has %d sessions, want 0", h.c.Registry().Len())
	}
	if h.node.disconnects != 1 || h.node.connects != 0 {
		t.Errorf("connects=%d disconnects=%d, want 0 and 1", h.node.connects, h.node.disconnects)
	}
	if len(h.node.Played()) != 0 {
		t.Errorf("node played %+v, want nothing", h.node.Played())
	}
}

func TestSkipWhilePausedResumes(t *testing.T) {
	h := newHarness()
	h.play(t, "t0")
	h.play(t, "t1")
	s := h.session(t)
	ctx := context.Background()
	s.OnTrackStart(ctx, testTrack("t0"))
	if err := s.Pause(ctx); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	if _, err := s.Skip(ctx); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.Paused || snap.State != StatePlaying {
		t.Errorf("snapshot = %+v, want playing", snap)
	}
	h.renderer.mu.Lock()
	last := h.renderer.updated[len(h.renderer.updated)-1]
	h.renderer.mu.Unlock()
	if last.Paused {
		t.Errorf("control message still shows paused")
	}
}
