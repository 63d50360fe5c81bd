package state

import (
	"errors"
	"testing"
)

func TestNextState(t *testing.T) {
	tests := []struct {
		name    string
		cur     string
		evt     string
		want    string
		wantErr bool
	}{
		{"idle credit ok", StateIdle, EvtCreditOK, StateCreditChecked, false},
		{"checked select", StateCreditChecked, EvtSelect, StateSelected, false},
		{"selected commit", StateSelected, EvtCommit, StateCommitted, false},
		{"idle fail", StateIdle, EvtFail, StateRolledBack, false},
		{"selected fail", StateSelected, EvtFail, StateRolledBack, false},
		{"skip credit check", StateIdle, EvtSelect, StateIdle, true},
		{"commit before select", StateCreditChecked, EvtCommit, StateCreditChecked, true},
		{"committed is terminal", StateCommitted, EvtFail, StateCommitted, true},
		{"rolled back is terminal", StateRolledBack, EvtCommit, StateRolledBack, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextState(tt.cur, tt.evt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
}

func noop() error { return nil }

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	for _, evt := range []string{EvtCreditOK, EvtSelect, EvtCommit} {
		if err := m.Step(evt, noop); err != nil {
			t.Fatalf("step %s: %v", evt, err)
		}
	}
	if m.Current() != StateCommitted || !IsTerminal(m.Current()) {
		t.Fatalf("state = %s", m.Current())
	}
	m.Fail()
	if m.Current() != StateCommitted {
		t.Fatalf("terminal state changed to %s", m.Current())
	}
}

func TestMachineStepOutOfOrderSkipsWork(t *testing.T) {
	m := NewMachine()
	ran := false
	err := m.Step(EvtSelect, func() error { ran = true; return nil })
	if err == nil || ran {
		t.Fatalf("err = %v ran = %v", err, ran)
	}
	if m.Current() != StateIdle {
		t.Fatalf("state = %s", m.Current())
	}
}

func TestMachineStepFailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	m := NewMachine()
	if err := m.Step(EvtCreditOK, noop); err != nil {
		t.Fatal(err)
	}
	if err := m.Step(EvtSelect, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if m.Current() != StateRolledBack {
		t.Fatalf("state = %s", m.Current())
	}
	if err := m.Step(EvtCommit, noop); err == nil {
		t.Fatal("rolled_back must be terminal")
	}
}
