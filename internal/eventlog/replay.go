package eventlog

import (
	"time"

	"github.com/verte-zerg/ctrainer/internal/schedule"
	"github.com/verte-zerg/ctrainer/internal/session"
)

// TickInterval is the host physics tick used to synthesize boost input.
const TickInterval = time.Second / 120

// Replayer feeds recorded events to a controller on virtual time. While boost
// is held it emits one boost tick per TickInterval between events.
type Replayer struct {
	ctrl  *session.Controller
	clock *schedule.ManualClock

	held     bool
	nextTick time.Time
	started  bool
}

// NewReplayer returns a Replayer driving ctrl. The controller's queue must
// read clock.
func NewReplayer(ctrl *session.Controller, clock *schedule.ManualClock) *Replayer {
	return &Replayer{ctrl: ctrl, clock: clock}
}

// Run replays every event, then lets pending outcomes settle.
func (r *Replayer) Run(events []Event, settle time.Duration) {
	for _, ev := range events {
		r.Apply(ev)
	}
	r.advanceTo(r.clock.Now().Add(settle))
}

// Apply advances virtual time to the event and dispatches it.
func (r *Replayer) Apply(ev Event) {
	if !r.started {
		r.clock.Reset(ev.Time)
		r.started = true
	}
	r.advanceTo(ev.Time)

	switch ev.Kind {
	case KindPack:
		r.ctrl.PackLoaded(ev.Int, ev.Active, ev.PackID)
	case KindStart:
		r.ctrl.AttemptStarted()
	case KindSuccess:
		r.ctrl.AttemptSucceeded()
	case KindFail:
		r.ctrl.AttemptFailed()
	case KindShot:
		r.ctrl.ShotChanged(ev.Int)
	case KindBoost:
		if ev.Held && !r.held {
			r.nextTick = r.clock.Now().Add(TickInterval)
		}
		r.held = ev.Held
	case KindResetSession:
		r.ctrl.SessionResetRequested()
	case KindClearLifetime:
		r.ctrl.LifetimeClearRequested()
	case KindMaxAttempts:
		r.ctrl.SetMaxAttempts(ev.Int)
	}
}

func (r *Replayer) advanceTo(t time.Time) {
	if r.held {
		for !r.nextTick.After(t) {
			r.clock.Set(r.nextTick)
			r.ctrl.Tick()
			r.ctrl.BoostTick(true)
			r.nextTick = r.nextTick.Add(TickInterval)
		}
	}
	r.clock.Set(t)
	r.ctrl.Tick()
}
