package lavalink

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/susu3304/nkmzplayer/internal/player"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

type fakeNode struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	response string
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	n.mu.Lock()
	n.requests = append(n.requests, recorded{r.Method, r.URL.Path, r.URL.Query().Get("identifier"), r.Header.Get("Authorization"), body})
	status, response := n.status, n.response
	n.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, response)
}

func (n *fakeNode) last(t *testing.T) recorded {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return n.requests[len(n.requests)-1]
}

type nopListener struct{}

func (nopListener) OnTrackStart(player.TrackStart)         {}
func (nopListener) OnTrackEnd(player.TrackEnd)             {}
func (nopListener) OnTrackException(player.TrackException) {}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	c := NewClient(Config{Host: host, Port: port, Password: "secret"}, NewVoice(), nopListener{})
	return c
}

func ready(c *Client) {
	_ = c.handleMessage([]byte(`{"op":"ready","resumed":false,"sessionId":"sess"}`))
}

func TestSearchPrefixesQueries(t *testing.T) {
	node := &fakeNode{response: `{"loadType":"search","data":[
		{"encoded":"AAA","info":{"title":"one","uri":"https://sc/one","length":61000}},
		{"encoded":"BBB","info":{"title":"two","uri":"https://sc/two","length":1000}}]}`}
	c := newTestClient(t, node)

	tracks, err := c.Search(context.Background(), "lofi beats")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tracks) != 2 || tracks[0].Encoded != "AAA" || tracks[0].LengthMs != 61000 {
		t.Errorf("tracks = %+v", tracks)
	}
	req := node.last(t)
	if req.path != "/v4/loadtracks" || req.query != "scsearch:lofi beats" || req.auth != "secret" {
		t.Errorf("request = %+v", req)
	}

	if _, err := c.Search(context.Background(), "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if q := node.last(t).query; q != "https://example.com/a" {
		t.Errorf("url identifier = %q", q)
	}
}

func TestSearchLoadTypes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
		wantErr  bool
	}{
		{"track", `{"loadType":"track","data":{"encoded":"A","info":{"title":"a"}}}`, 1, false},
		{"playlist", `{"loadType":"playlist","data":{"info":{"name":"p"},"tracks":[{"encoded":"A"},{"encoded":"B"}]}}`, 2, false},
		{"empty", `{"loadType":"empty","data":{}}`, 0, false},
		{"error", `{"loadType":"error","data":{"message":"boom","severity":"common"}}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeNode{response: tt.response})
			tracks, err := c.Search(context.Background(), "q")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Search() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tracks) != tt.want {
				t.Errorf("got %d tracks, want %d", len(tracks), tt.want)
			}
		})
	}
}

func TestPlayerCommandsRequireReady(t *testing.T) {
	c := newTestClient(t, &fakeNode{})
	if err := c.Pause(context.Background(), "g", true); err != ErrNotReady {
		t.Errorf("Pause() before ready error = %v, want ErrNotReady", err)
	}
}

func TestPlayAndStopPayloads(t *testing.T) {
	node := &fakeNode{response: `{}`}
	c := newTestClient(t, node)
	ready(c)
	ctx := context.Background()

	if err := c.Play(ctx, "g1", player.Track{Encoded: "AAA", RequesterID: "u1"}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	req := node.last(t)
	if req.method != http.MethodPatch || req.path != "/v4/sessions/sess/players/g1" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	track := req.body["track"].(map[string]any)
	if track["encoded"] != "AAA" || track["userData"].(map[string]any)["requesterId"] != "u1" {
		t.Errorf("track payload = %v", track)
	}
	if req.body["paused"] != false {
		t.Errorf("paused = %v, want false", req.body["paused"])
	}

	if err := c.Stop(ctx, "g1"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	track = node.last(t).body["track"].(map[string]any)
	if v, ok := track["encoded"]; !ok || v != nil {
		t.Errorf("stop payload = %v, want encoded null", track)
	}
}

func TestConnectSendsVoice(t *testing.T) {
	node := &fakeNode{response: `{}`}
	c := newTestClient(t, node)
	ready(c)

	creds := player.Credentials{SessionID: "vs", Endpoint: "ep", Token: "tok"}
	if err := c.Connect(context.Background(), "g1", creds); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	voice := node.last(t).body["voice"].(map[string]any)
	if voice["sessionId"] != "vs" || voice["endpoint"] != "ep" || voice["token"] != "tok" {
		t.Errorf("voice payload = %v", voice)
	}
}

func TestDisconnectToleratesMissingPlayer(t *testing.T) {
	node := &fakeNode{status: http.StatusNotFound, response: `{"status":404,"message":"Player not found"}`}
	c := newTestClient(t, node)
	ready(c)

	if err := c.Disconnect(context.Background(), "g1"); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if req := node.last(t); req.method != http.MethodDelete {
		t.Errorf("method = %s", req.method)
	}
}

func TestRESTErrorsCarryStatus(t *testing.T) {
	node := &fakeNode{status: http.StatusBadRequest, response: `{"status":400,"message":"bad track"}`}
	c := newTestClient(t, node)
	ready(c)

	err := c.Play(context.Background(), "g1", player.Track{Encoded: "x"})
	se, ok := err.(*StatusError)
	if !ok || se.Status != http.StatusBadRequest || se.Message != "bad track" {
		t.Errorf("Play() error = %v", err)
	}
}

func TestVoiceServerMoveResendsCredentials(t *testing.T) {
	node := &fakeNode{response: `{}`}
	c := newTestClient(t, node)
	ready(c)
	c.voice.SetUserID("bot")

	c.voice.VoiceStateUpdate("g1", "bot", "vs", "chan")
	c.voice.VoiceServerUpdate("g1", "ep1", "tok1")
	creds, err := c.AwaitCredentials(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(context.Background(), "g1", creds); err != nil {
		t.Fatal(err)
	}

	c.voice.VoiceServerUpdate("g1", "ep2", "tok2")
	voice := node.last(t).body["voice"].(map[string]any)
	if voice["endpoint"] != "ep2" || voice["token"] != "tok2" {
		t.Errorf("voice payload after move = %v", voice)
	}
}
