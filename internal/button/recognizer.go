// Package button classifies timed patterns on the top-board pushbutton
// into gestures. The line idles high; the recognizer samples it every
// 100ms into a trailing bit window and matches the window against the
// gesture patterns. Correctness depends on the sampling cadence, so
// the loop runs on its own goroutine and never does slow I/O.
package button

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
)

const sampleInterval = 100 * time.Millisecond

// Gesture is a classified button pattern.
type Gesture string

const (
	GestureClick Gesture = "click"
	GestureTwice Gesture = "twice"
	GesturePress Gesture = "press"
)

// Reader reads the button input line. True means the line is high
// (button released).
type Reader interface {
	Read() (bool, error)
}

type pattern struct {
	gesture Gesture
	re      *regexp.Regexp
}

// Recognizer holds the sample window and the compiled gesture
// patterns. It is driven from a single goroutine.
type Recognizer struct {
	reader   Reader
	window   string
	capacity int
	// Patterns are evaluated in order: press must win over twice and
	// twice over click, because their windows overlap and a long
	// press would otherwise be reclassified as a click.
	patterns []pattern
}

// New builds a recognizer from the configured press threshold and the
// click/twice disambiguation window.
func New(reader Reader, pressThreshold, twiceWindow time.Duration) (*Recognizer, error) {
	errFactory := errors.New()

	pressSamples := samplesFor(pressThreshold)
	clickSamples := samplesFor(twiceWindow)
	if pressSamples < 1 || clickSamples < 1 {
		return nil, errFactory.WithData(errors.ErrInvalidArgument, "gesture thresholds shorter than sample interval")
	}

	compile := func(g Gesture, expr string) (pattern, error) {
		re, err := regexp.Compile(expr)
		if err != nil {
			return pattern{}, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
		return pattern{gesture: g, re: re}, nil
	}

	// press: the line held low for the full threshold.
	// twice: two press-release cycles, then released long enough to
	// rule out a third.
	// click: one press, then idle-high for the disambiguation window.
	defs := []struct {
		gesture Gesture
		expr    string
	}{
		{GesturePress, fmt.Sprintf("1+0{%d,}", pressSamples)},
		{GestureTwice, "1+0+1+0+1{3,}"},
		{GestureClick, fmt.Sprintf("1+0+1{%d,}", clickSamples)},
	}

	patterns := make([]pattern, 0, len(defs))
	for _, def := range defs {
		p, err := compile(def.gesture, def.expr)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}

	return &Recognizer{
		reader:   reader,
		capacity: pressSamples,
		patterns: patterns,
	}, nil
}

// Sample appends one bit to the window and classifies it. On a match
// the window is reset so a fresh classification begins.
func (r *Recognizer) Sample(high bool) (Gesture, bool) {
	bit := "0"
	if high {
		bit = "1"
	}

	// Keep the last capacity samples, then append the newest.
	if len(r.window) > r.capacity {
		r.window = r.window[len(r.window)-r.capacity:]
	}
	r.window += bit

	for _, p := range r.patterns {
		if p.re.MatchString(r.window) {
			r.window = ""
			return p.gesture, true
		}
	}

	return "", false
}

// Run samples the button every 100ms and sends recognized gestures.
// Read failures are logged and the sample skipped.
func (r *Recognizer) Run(ctx context.Context, gestures chan<- Gesture) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			high, err := r.reader.Read()
			if err != nil {
				logger.Debug().Err(err).Msg("Button read failed")
				continue
			}

			if gesture, ok := r.Sample(high); ok {
				logger.Debug().Str("gesture", string(gesture)).Msg("Gesture recognized")
				select {
				case gestures <- gesture:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func samplesFor(d time.Duration) int {
	return int(math.Round(d.Seconds() / sampleInterval.Seconds()))
}
