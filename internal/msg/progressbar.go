package msg

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar renders download progress for a byte stream. Give it the
// expected total (e.g. a Content-Length) and route the stream through it
// with io.TeeReader or io.MultiWriter; with an unknown total it degrades to
// a KB counter.
type ProgressBar struct {
	Total   int64
	Current int64
	Indent  int
	W       io.Writer

	lastDraw time.Time
	frame    int
}

var spinnerFrames = []rune{'|', '/', '-', '\\'}

func NewProgressBar(total int64, indent int, w io.Writer) *ProgressBar {
	return &ProgressBar{
		Total:    total,
		Indent:   indent,
		W:        w,
		lastDraw: time.Now(),
	}
}

func (pb *ProgressBar) Write(p []byte) (int, error) {
	n := len(p)
	pb.Current += int64(n)

	// redrawing on every chunk floods slow terminals
	if time.Since(pb.lastDraw) > 40*time.Millisecond {
		pb.draw(false)
		pb.lastDraw = time.Now()
	}
	return n, nil
}

func (pb *ProgressBar) draw(done bool) {
	spinner := spinnerFrames[pb.frame%len(spinnerFrames)]
	pb.frame++
	if done {
		spinner = ' '
	}

	if pb.Total <= 0 {
		fmt.Fprintf(pb.W, "\r%s%d KB %c",
			strings.Repeat(" ", pb.Indent),
			pb.Current/1024,
			spinner,
		)
		return
	}

	const width = 40
	fraction := float64(pb.Current) / float64(pb.Total)
	if done {
		fraction = 1
	}
	filled := min(int(fraction*width), width)

	fmt.Fprintf(pb.W, "\r%s%6.f%% [%s%s] %c",
		strings.Repeat(" ", pb.Indent),
		fraction*100,
		strings.Repeat("█", filled),
		strings.Repeat("-", width-filled),
		spinner,
	)
}

// Finish draws the completed bar and moves to the next line.
func (pb *ProgressBar) Finish() {
	pb.draw(true)
	fmt.Fprintln(pb.W)
}
