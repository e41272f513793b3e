package model

import (
	"testing"
	"time"
)

func TestEvaluationStateAt(t *testing.T) {
	opens := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closes := opens.Add(time.Hour)

	eval := &Evaluation{OpensAt: opens, ClosesAt: closes}

	cases := []struct {
		name string
		now  time.Time
		want EvaluationState
	}{
		{"well before open", opens.Add(-24 * time.Hour), EvaluationScheduled},
		{"one second before open", opens.Add(-time.Second), EvaluationScheduled},
		{"exactly at open", opens, EvaluationOpen},
		{"mid window", opens.Add(30 * time.Minute), EvaluationOpen},
		{"one second before close", closes.Add(-time.Second), EvaluationOpen},
		{"exactly at close", closes, EvaluationClosed},
		{"after close", closes.Add(time.Hour), EvaluationClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := eval.StateAt(tc.now); got != tc.want {
				t.Fatalf("StateAt(%v) = %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}

func TestEvaluationForceClosedIsTerminal(t *testing.T) {
	opens := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closes := opens.Add(time.Hour)

	eval := &Evaluation{OpensAt: opens, ClosesAt: closes, ForceClosed: true}

	// 即使墙钟仍在窗口内甚至窗口前，强制关闭一律为 CLOSED
	for _, now := range []time.Time{
		opens.Add(-time.Minute),
		opens.Add(10 * time.Minute),
		closes.Add(time.Minute),
	} {
		if got := eval.StateAt(now); got != EvaluationClosed {
			t.Fatalf("StateAt(%v) with ForceClosed = %s, want CLOSED", now, got)
		}
	}
}
