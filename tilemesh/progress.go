package tilemesh

import (
	"fmt"
	"time"
)

const (
	progressStepPercent = 5
	progressMaxInterval = 15 * time.Second
)

// progress throttles whole-mesh build reports to every 5% or 15 seconds,
// whichever comes first.
type progress struct {
	fn       func(string)
	now      func() time.Time
	start    time.Time
	last     time.Time
	lastStep int
}

func newProgress(fn func(string), now func() time.Time) *progress {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &progress{fn: fn, now: now, start: t, last: t, lastStep: -1}
}

func (p *progress) report(done, total int) {
	if p.fn == nil || total <= 0 {
		return
	}
	pct := done * 100 / total
	step := pct / progressStepPercent
	t := p.now()
	if step == p.lastStep && t.Sub(p.last) < progressMaxInterval {
		return
	}
	p.lastStep = step
	p.last = t
	p.fn(fmt.Sprintf("Building tiles: %d%% (%.1fs)", pct, t.Sub(p.start).Seconds()))
}
