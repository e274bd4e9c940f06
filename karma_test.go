package gatekeeper

import "testing"

func TestLedger_AdjustCumulative(t *testing.T) {
	l := newLedger(nil)
	if l.Score() != 0 {
		t.Fatalf("fresh ledger Score() = %d, want 0", l.Score())
	}
	l.Adjust(-1)
	l.Adjust(-1)
	l.Adjust(-1)
	if l.Score() != -3 {
		t.Errorf("Score() = %d, want -3", l.Score())
	}
	l.Adjust(5)
	if l.Score() != 2 {
		t.Errorf("Score() = %d, want 2", l.Score())
	}
}

func TestLedger_Thresholds(t *testing.T) {
	tests := []struct {
		name        string
		deltas      []int
		wantImmune  bool
		wantNaughty bool
	}{
		{"Neutral", []int{1, -1}, false, false},
		{"CrossesImmune", []int{3, 3}, true, false},
		{"CrossesNaughty", []int{-2, -2}, false, true},
		{"RecoversButNaughtySticks", []int{-4, 10}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(&KarmaThresholds{Immune: 5, Naughty: -3})
			for _, d := range tt.deltas {
				l.Adjust(d)
			}
			if got := l.IsImmune(); got != tt.wantImmune {
				t.Errorf("IsImmune() = %v, want %v", got, tt.wantImmune)
			}
			if got := l.IsNaughty(); got != tt.wantNaughty {
				t.Errorf("IsNaughty() = %v, want %v", got, tt.wantNaughty)
			}
		})
	}
}

func TestLedger_NaughtyFirstReasonWins(t *testing.T) {
	l := newLedger(nil)
	l.MarkNaughty("first opinion")
	l.MarkNaughty("second opinion")
	if !l.IsNaughty() {
		t.Fatal("IsNaughty() = false after MarkNaughty")
	}
	if got := l.NaughtyReason(); got != "first opinion" {
		t.Errorf("NaughtyReason() = %q, want %q", got, "first opinion")
	}
}

func TestLedger_ImmuneIndependentOfScore(t *testing.T) {
	l := newLedger(&KarmaThresholds{Immune: 100, Naughty: -100})
	l.Adjust(-50)
	l.SetImmune()
	if !l.IsImmune() {
		t.Errorf("IsImmune() = false after SetImmune despite bad score")
	}
}

func TestLedger_FrozenIgnoresUpdates(t *testing.T) {
	l := newLedger(nil)
	l.Adjust(-2)
	l.freeze()
	l.Adjust(-2)
	l.MarkNaughty("too late")
	l.SetImmune()
	if l.Score() != -2 {
		t.Errorf("Score() = %d, want -2 after freeze", l.Score())
	}
	if l.IsNaughty() {
		t.Errorf("IsNaughty() = true, naughty must not change after freeze")
	}
	if l.IsImmune() {
		t.Errorf("IsImmune() = true, immunity must not change after freeze")
	}
}
