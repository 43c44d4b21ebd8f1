package domain

import (
	"testing"
	"time"
)

func TestParseConditionOrder(t *testing.T) {
	if _, err := ParseConditionOrder("AB"); err != nil {
		t.Errorf("AB rejected: %v", err)
	}
	if _, err := ParseConditionOrder("BA"); err != nil {
		t.Errorf("BA rejected: %v", err)
	}
	if _, err := ParseConditionOrder("XY"); err == nil {
		t.Error("XY accepted")
	}
	if _, err := ParseConditionOrder(""); err == nil {
		t.Error("empty order accepted")
	}
}

func TestCurrentCondition(t *testing.T) {
	tests := []struct {
		order  ConditionOrder
		washed bool
		want   Condition
	}{
		{OrderAB, false, ConditionXAI},
		{OrderAB, true, ConditionNonXAI},
		{OrderBA, false, ConditionNonXAI},
		{OrderBA, true, ConditionXAI},
	}
	for _, tt := range tests {
		p := &ParticipantStatus{ConditionOrder: tt.order, WashoutCompleted: tt.washed}
		if got := p.CurrentCondition(); got != tt.want {
			t.Errorf("order=%s washed=%v: condition = %s, want %s", tt.order, tt.washed, got, tt.want)
		}
	}
}

func TestSessionPart(t *testing.T) {
	p := &ParticipantStatus{}
	if p.SessionPart() != 1 {
		t.Errorf("SessionPart before washout = %d", p.SessionPart())
	}
	p.WashoutCompleted = true
	if p.SessionPart() != 2 {
		t.Errorf("SessionPart after washout = %d", p.SessionPart())
	}
}

func TestWashoutDwell(t *testing.T) {
	now := time.Now()
	p := &ParticipantStatus{}
	if p.WashoutDwell(now) != 0 {
		t.Error("dwell without start should be zero")
	}

	start := now.Add(-90 * time.Second)
	p.WashoutStart = &start
	if got := p.WashoutDwell(now); got != 90*time.Second {
		t.Errorf("dwell = %s, want 90s", got)
	}

	future := now.Add(time.Minute)
	p.WashoutStart = &future
	if p.WashoutDwell(now) != 0 {
		t.Error("future start should clamp to zero")
	}
}

func TestMeasureText(t *testing.T) {
	tests := []struct {
		text   string
		chars  int
		words  int
		tokens int
	}{
		{"hello world", 11, 2, 3},
		{"  trimmed  ", 7, 1, 2},
		{"", 0, 0, 1},
		{"你好吗", 3, 1, 1},
	}
	for _, tt := range tests {
		got := MeasureText(tt.text)
		if got.Chars != tt.chars || got.Words != tt.words || got.Tokens != tt.tokens {
			t.Errorf("MeasureText(%q) = %+v, want chars=%d words=%d tokens=%d",
				tt.text, got, tt.chars, tt.words, tt.tokens)
		}
	}
}
