// Package eventlog parses recorded host events and replays them through a
// session controller.
//
// Each line holds one event:
//
//	[15:04:05.000] pack 10 0 aerial-basics
//	[15:04:06.250] start
//	[15:04:07.100] boost 1
//	[15:04:08.400] success
//
// Blank lines and lines starting with '#' are ignored.
package eventlog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/ctrainer/internal/model"
)

// TimeLayout is the timestamp format of a log line.
const TimeLayout = "15:04:05.000"

// Kind identifies an inbound host event.
type Kind string

// Event kinds understood by the replayer.
const (
	KindPack          Kind = "pack"
	KindStart         Kind = "start"
	KindSuccess       Kind = "success"
	KindFail          Kind = "fail"
	KindShot          Kind = "shot"
	KindBoost         Kind = "boost"
	KindResetSession  Kind = "reset-session"
	KindClearLifetime Kind = "clear-lifetime"
	KindMaxAttempts   Kind = "max"
)

// Event is one parsed log line.
type Event struct {
	Time   time.Time
	Kind   Kind
	Int    int
	Active int
	Held   bool
	PackID string
	Line   int
	Raw    string
}

// Parse reads every event from r.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ev.Line = lineNo
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// ParseLine parses a single event line.
func ParseLine(line string) (Event, error) {
	ev := Event{Raw: line}
	if !strings.HasPrefix(line, "[") {
		return ev, fmt.Errorf("missing timestamp in %q", line)
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return ev, fmt.Errorf("unterminated timestamp in %q", line)
	}
	t, err := time.Parse(TimeLayout, line[1:end])
	if err != nil {
		return ev, fmt.Errorf("invalid timestamp: %w", err)
	}
	ev.Time = t

	parts := strings.Fields(line[end+1:])
	if len(parts) == 0 {
		return ev, fmt.Errorf("missing event in %q", line)
	}
	ev.Kind = Kind(parts[0])
	args := parts[1:]

	switch ev.Kind {
	case KindStart, KindSuccess, KindFail, KindResetSession, KindClearLifetime:
		if len(args) != 0 {
			return ev, fmt.Errorf("%s takes no arguments", ev.Kind)
		}
	case KindShot, KindMaxAttempts:
		if len(args) != 1 {
			return ev, fmt.Errorf("%s takes one argument", ev.Kind)
		}
		if ev.Int, err = strconv.Atoi(args[0]); err != nil {
			return ev, fmt.Errorf("invalid %s argument: %w", ev.Kind, err)
		}
	case KindBoost:
		if len(args) != 1 {
			return ev, fmt.Errorf("boost takes one argument")
		}
		switch args[0] {
		case "1", "true", "on":
			ev.Held = true
		case "0", "false", "off":
			ev.Held = false
		default:
			return ev, fmt.Errorf("invalid boost argument %q", args[0])
		}
	case KindPack:
		if len(args) != 3 {
			return ev, fmt.Errorf("pack takes <total> <active> <id>")
		}
		if ev.Int, err = strconv.Atoi(args[0]); err != nil {
			return ev, fmt.Errorf("invalid shot count: %w", err)
		}
		if ev.Int < 1 {
			return ev, fmt.Errorf("shot count must be >= 1")
		}
		if ev.Active, err = strconv.Atoi(args[1]); err != nil {
			return ev, fmt.Errorf("invalid active shot: %w", err)
		}
		ev.PackID = model.PackIDFromPath(args[2])
	default:
		return ev, fmt.Errorf("unknown event %q", parts[0])
	}
	return ev, nil
}
