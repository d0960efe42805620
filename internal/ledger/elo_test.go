package ledger // nolint:testpackage

import (
	"math"
	"testing"
)

func TestEloUpdate(t *testing.T) {
	elo := NewElo()

	if delta := elo.Update(1500, 1500, true, false); math.Abs(delta-16) > 1e-9 {
		t.Errorf("expected +16 for an even win, got %f", delta)
	}

	if delta := elo.Update(1500, 1500, false, false); math.Abs(delta+16) > 1e-9 {
		t.Errorf("expected -16 for an even loss, got %f", delta)
	}

	if delta := elo.Update(1500, 1500, true, true); math.Abs(delta-32) > 1e-9 {
		t.Errorf("expected challenges to weigh double, got %f", delta)
	}

	// Beating a stronger player pays more than beating a weaker one.
	upset := elo.Update(1500, 1700, true, false)
	expected := elo.Update(1700, 1500, true, false)
	if upset <= expected {
		t.Errorf("expected an upset (%f) to pay more than an expected win (%f)", upset, expected)
	}

	// The formula is zero-sum across the two viewpoints.
	if d1, d2 := elo.Update(1500, 1700, true, false), elo.Update(1700, 1500, false, false); math.Abs(d1+d2) > 1e-9 {
		t.Errorf("expected symmetric deltas, got %f and %f", d1, d2)
	}
}

func TestGlickoUpdate(t *testing.T) {
	var g Glicko

	if delta := g.Update(1500, 1500, true, false); delta <= 0 {
		t.Errorf("expected a positive delta for a win, got %f", delta)
	}

	if delta := g.Update(1500, 1500, false, false); delta >= 0 {
		t.Errorf("expected a negative delta for a loss, got %f", delta)
	}
}
