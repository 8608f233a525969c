package lavalink

import "sync"

// serialGroup runs functions one at a time per key, in submission order.
// Different keys run concurrently.
type serialGroup struct {
	mu     sync.Mutex
	queues map[string][]func()
}

func newSerialGroup() *serialGroup {
	return &serialGroup{queues: make(map[string][]func())}
}

func (g *serialGroup) Go(key string, fn func()) {
	g.mu.Lock()
	q, running := g.queues[key]
	g.queues[key] = append(q, fn)
	g.mu.Unlock()

	if !running {
		go g.drain(key)
	}
}

func (g *serialGroup) drain(key string) {
	for {
		g.mu.Lock()
		q := g.queues[key]
		if len(q) == 0 {
			delete(g.queues, key)
			g.mu.Unlock()
			return
		}
		fn := q[0]
		g.queues[key] = q[1:]
		g.mu.Unlock()

		fn()
	}
}
