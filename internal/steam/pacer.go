package steam

import (
	"time"
)

// Pacer enforces a minimum spacing between any two outbound requests and
// carries the run-global slow mode that a rate-limit signal triggers.
// It is shared by every fetch of a run and is not safe for concurrent use;
// the crawl runs a single worker.
type Pacer struct {
	minDelay  time.Duration
	slowMult  int
	coolDown  time.Duration
	slowUntil time.Time
	lastReq   time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPacer creates a pacer with the given baseline spacing. During slow mode
// the spacing is multiplied by slowMult for coolDown after the last
// rate-limit signal.
func NewPacer(minDelay time.Duration, slowMult int, coolDown time.Duration) *Pacer {
	if slowMult < 1 {
		slowMult = 1
	}
	return &Pacer{
		minDelay: minDelay,
		slowMult: slowMult,
		coolDown: coolDown,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until the next request is allowed to go out and records the
// request time. Called immediately before every outbound request.
func (p *Pacer) Wait() {
	delay := p.minDelay
	if p.Slowed() {
		delay *= time.Duration(p.slowMult)
	}

	if !p.lastReq.IsZero() {
		if elapsed := p.now().Sub(p.lastReq); elapsed < delay {
			p.sleep(delay - elapsed)
		}
	}
	p.lastReq = p.now()
}

// EnterSlowMode raises the request spacing for the cool-down window.
// Repeated signals extend the window.
func (p *Pacer) EnterSlowMode() {
	p.slowUntil = p.now().Add(p.coolDown)
}

// Slowed reports whether the pacer is currently inside a slow-mode window.
func (p *Pacer) Slowed() bool {
	return p.now().Before(p.slowUntil)
}
