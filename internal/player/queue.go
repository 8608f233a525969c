package player

import "slices"

// Queue is the FIFO of pending tracks. It is not safe for concurrent use;
// the owning Session guards it.
type Queue struct {
	tracks []Track
}

func (q *Queue) Push(t Track) int {
	q.tracks = append(q.tracks, t)
	return len(q.tracks)
}

func (q *Queue) Peek() (Track, bool) {
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	return q.tracks[0], true
}

func (q *Queue) Pop() (Track, bool) {
	t, ok := q.Peek()
	if !ok {
		return Track{}, false
	}
	q.tracks[0] = Track{}
	q.tracks = q.tracks[1:]
	return t, true
}

func (q *Queue) Len() int {
	return len(q.tracks)
}

// Tracks returns a copy of the pending tracks in play order.
func (q *Queue) Tracks() []Track {
	return slices.Clone(q.tracks)
}

func (q *Queue) Clear() {
	q.tracks = nil
}
