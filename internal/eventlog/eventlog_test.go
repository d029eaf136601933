package eventlog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ctrainer/internal/model"
	"github.com/verte-zerg/ctrainer/internal/schedule"
	"github.com/verte-zerg/ctrainer/internal/session"
)

type nopSink struct{ repeats, advances int }

func (s *nopSink) RepeatShot()  { s.repeats++ }
func (s *nopSink) AdvanceShot() { s.advances++ }

type blobStore struct{ blob string }

func (b *blobStore) Load(context.Context) (string, error) { return b.blob, nil }
func (b *blobStore) Save(_ context.Context, blob string) error {
	b.blob = blob
	return nil
}

func TestParse(t *testing.T) {
	input := `# warmup
[09:00:00.000] pack 10 0 packs/Aerial|Basics.json

[09:00:01.000] start
[09:00:01.500] boost on
[09:00:02.000] boost 0
[09:00:02.100] success
[09:00:03.000] shot -1
[09:00:04.000] max 5
`
	events, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 7)
	require.Equal(t, KindPack, events[0].Kind)
	require.Equal(t, 10, events[0].Int)
	require.Equal(t, "Aerial_Basics", events[0].PackID)
	require.Equal(t, 2, events[0].Line)
	require.True(t, events[2].Held)
	require.False(t, events[3].Held)
	require.Equal(t, -1, events[5].Int)
	require.Equal(t, KindMaxAttempts, events[6].Kind)
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		"start",
		"[09:00] start",
		"[09:00:00.000]",
		"[09:00:00.000] jump",
		"[09:00:00.000] start now",
		"[09:00:00.000] shot two",
		"[09:00:00.000] boost maybe",
		"[09:00:00.000] pack 0 0 p",
		"[09:00:00.000] pack 3 0",
	} {
		_, err := ParseLine(line)
		require.Error(t, err, line)
	}
	_, err := Parse(strings.NewReader("[09:00:00.000] start\nbad\n"))
	require.ErrorContains(t, err, "line 2")
}

func TestReplaySynthesizesBoostTicks(t *testing.T) {
	input := `[09:00:00.000] pack 3 0 pack
[09:00:01.000] start
[09:00:01.000] boost 1
[09:00:02.000] boost 0
[09:00:02.500] success
`
	events, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	clock := schedule.NewManualClock(time.Time{})
	sink := &nopSink{}
	ctrl := session.New(model.DefaultConfig(), schedule.NewQueue(clock), sink, &blobStore{}, nil)
	NewReplayer(ctrl, clock).Run(events, model.DefaultSettleDelay)

	s := ctrl.Aggregator().Shot(0)
	require.Equal(t, 1, s.Attempts)
	require.Equal(t, 1, s.Successes)
	require.InDelta(t, 100.0/3.0, s.TotalBoostUsed, 1e-6)
	require.InDelta(t, 100.0/3.0, s.MinSuccessfulBoostUsed, 1e-6)
	require.Equal(t, 1, sink.repeats)
}

func TestReplayFullRunWithEcho(t *testing.T) {
	var b strings.Builder
	b.WriteString("[10:00:00.000] pack 2 0 pack\n[10:00:00.100] max 3\n")
	ts := time.Date(0, 1, 1, 10, 0, 1, 0, time.UTC)
	for i := 0; i < 3; i++ {
		b.WriteString("[" + ts.Format(TimeLayout) + "] start\n")
		ts = ts.Add(time.Second)
		if i == 1 {
			b.WriteString("[" + ts.Format(TimeLayout) + "] fail\n")
		} else {
			b.WriteString("[" + ts.Format(TimeLayout) + "] success\n")
		}
		// Host echo of the trainer's repeat request.
		ts = ts.Add(200 * time.Millisecond)
		b.WriteString("[" + ts.Format(TimeLayout) + "] fail\n")
		ts = ts.Add(time.Second)
	}
	b.WriteString("[" + ts.Format(TimeLayout) + "] shot 5\n")

	events, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)

	clock := schedule.NewManualClock(time.Time{})
	sink := &nopSink{}
	store := &blobStore{}
	ctrl := session.New(model.DefaultConfig(), schedule.NewQueue(clock), sink, store, nil)
	ctrl.Load(context.Background())
	NewReplayer(ctrl, clock).Run(events, model.DefaultSettleDelay)

	require.Equal(t, 3, sink.repeats)
	require.Equal(t, 0, ctrl.Aggregator().Current())
	lt := ctrl.Aggregator().Store()["pack"][0]
	require.Equal(t, 2, lt.BestSuccesses)
	require.Equal(t, 3, lt.AttemptsAtBest)
	require.Contains(t, store.blob, "pack|0|2|3|")
}
