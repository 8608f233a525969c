package player

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// PageSize is the number of queue entries per page, the playing track included.
const PageSize = 11

type Page struct {
	Number      int
	Total       int
	Description string
}

type pageEntry struct {
	index int
	track Track
}

// BuildPages lays out the playing track as entry 0 followed by the pending
// tracks numbered from 1.
func BuildPages(nowPlaying *Track, pending []Track) []Page {
	entries := make([]pageEntry, 0, len(pending)+1)
	if nowPlaying != nil {
		entries = append(entries, pageEntry{index: 0, track: *nowPlaying})
	}
	for i, t := range pending {
		entries = append(entries, pageEntry{index: i + 1, track: t})
	}
	if len(entries) == 0 {
		return nil
	}

	chunks := lo.Chunk(entries, PageSize)
	pages := make([]Page, len(chunks))
	for n, chunk := range chunks {
		var b strings.Builder
		for _, e := range chunk {
			if e.index == 0 {
				fmt.Fprintf(&b, "**Now Playing**: %s\n", TrackLine(e.track))
				continue
			}
			if e.index == 1 {
				b.WriteString("\n**Up Next:**")
			}
			fmt.Fprintf(&b, "\n`%d.` %s", e.index, TrackLine(e.track))
		}
		pages[n] = Page{Number: n + 1, Total: len(chunks), Description: b.String()}
	}
	return pages
}

// TrackLine renders a track as a markdown link with its duration.
func TrackLine(t Track) string {
	return fmt.Sprintf("[%s](%s) | `%s`", t.Title, t.URI, t.Duration())
}
