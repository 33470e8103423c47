package pricing

import (
	"math"
	"testing"

	"github.com/rewired-gh/silveragent/internal/models"
)

func TestNextPrice_Clamped(t *testing.T) {
	draws := []float64{0, 0.25, 0.5, 0.75, 0.999999}
	for start := 28.0; start <= 33.0; start += 0.25 {
		for _, d := range draws {
			got := NextPrice(start, NewSequence(d))
			if got < 28 || got > 33 {
				t.Errorf("NextPrice(%.2f, %v) = %v, out of [28, 33]", start, d, got)
			}
		}
	}
}

func TestNextPrice_Formula(t *testing.T) {
	// draw 0.5 -> zero step, only mean reversion remains
	got := NextPrice(30.0, NewSequence(0.5))
	want := 30.0 + 0.02*0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("NextPrice(30, 0.5) = %v, want %v", got, want)
	}

	// draw 1 -> +0.15 step
	got = NextPrice(30.5, NewSequence(1))
	if math.Abs(got-30.65) > 1e-9 {
		t.Errorf("NextPrice(30.5, 1) = %v, want 30.65", got)
	}
}

func TestNextPrice_FloorAndCeiling(t *testing.T) {
	if got := NextPrice(28.0, NewSequence(0)); got < 28 {
		t.Errorf("expected floor at 28, got %v", got)
	}
	if got := NextPrice(33.0, NewSequence(1)); got != 33 {
		t.Errorf("expected ceiling at 33, got %v", got)
	}
}

func TestPredict(t *testing.T) {
	// trend draw 0.4 -> 0.0, confidence draw 0.5 -> 0.5
	p := Predict(30.0, NewSequence(0.4, 0.5))
	if p.Predicted != 30.0 {
		t.Errorf("predicted = %v, want 30", p.Predicted)
	}
	if p.Low != 29.5 || p.High != 30.5 {
		t.Errorf("band = [%v, %v], want [29.5, 30.5]", p.Low, p.High)
	}
}

func TestPredict_Rounded(t *testing.T) {
	r := NewRand(42)
	for i := 0; i < 200; i++ {
		p := Predict(30.123456, r)
		for _, v := range []float64{p.Predicted, p.Low, p.High} {
			if math.Abs(v*100-math.Round(v*100)) > 1e-6 {
				t.Fatalf("value %v not rounded to 2 decimals", v)
			}
		}
		if p.Low > p.Predicted || p.High < p.Predicted {
			t.Fatalf("prediction %v outside its own band [%v, %v]", p.Predicted, p.Low, p.High)
		}
		if p.High-p.Low < 0.59 || p.High-p.Low > 1.41 {
			t.Fatalf("band width %v outside [0.6, 1.4]", p.High-p.Low)
		}
	}
}

func TestClassifyVolatility(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   models.Volatility
	}{
		{"empty", nil, models.VolatilityLow},
		{"four points", []float64{28, 33, 28, 33}, models.VolatilityLow},
		{"constant", []float64{30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30}, models.VolatilityLow},
		{"small swing", []float64{30, 30.1, 30, 30.1, 30, 30.1, 30, 30.1, 30, 30.1}, models.VolatilityLow},
		{"above medium", []float64{30, 30.2, 30, 30.2, 30, 30.2, 30, 30.2, 30, 30.2}, models.VolatilityMedium},
		{"high", []float64{30, 30.4, 30, 30.4, 30, 30.4, 30, 30.4, 30, 30.4}, models.VolatilityHigh},
		{
			"only last ten count",
			[]float64{28, 33, 28, 33, 28, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30},
			models.VolatilityLow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyVolatility(tt.prices); got != tt.want {
				t.Errorf("ClassifyVolatility() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSequence_Cycles(t *testing.T) {
	s := NewSequence(0.1, 0.2)
	got := []float64{s.Float64(), s.Float64(), s.Float64()}
	if got[0] != 0.1 || got[1] != 0.2 || got[2] != 0.1 {
		t.Errorf("unexpected sequence %v", got)
	}
	if v := NewSequence().Float64(); v != 0.5 {
		t.Errorf("empty sequence = %v, want 0.5", v)
	}
}
