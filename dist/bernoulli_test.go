package dist

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
)

func TestBernoulliBeta_PointEstimate(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		prior  *Prior
		want   float64
	}{
		{name: "success frequency", values: []float64{1, 0, 1, 1}, want: 0.75},
		{name: "all failures", values: []float64{0, 0}, want: 0},
		{name: "empty history with prior", values: nil, prior: &Prior{Alpha: 1, Beta: 3}, want: 0.25},
		{name: "empty history without prior", values: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models, err := BernoulliBeta{}.Fit(Observations{Values: tt.values}, 1, tt.prior, nil)
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if got := models[0].Mean()[0]; got != tt.want {
				t.Errorf("p = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBernoulliBeta_PosteriorDraws(t *testing.T) {
	obs := Observations{Values: []float64{1, 1, 1, 0, 1, 0, 1, 1}} // 6/8
	const numDraws = 3000
	models, err := BernoulliBeta{}.Fit(obs, numDraws, nil, rand.NewSource(11))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	var sum float64
	for _, m := range models {
		p := m.Mean()[0]
		if p < 0 || p > 1 {
			t.Fatalf("draw outside [0,1]: %v", p)
		}
		sum += p
	}
	if avg := sum / numDraws; math.Abs(avg-0.75) > 0.05 {
		t.Errorf("empirical posterior mean = %v, want 0.75±0.05", avg)
	}
}

func TestBernoulliBeta_OneSidedHistory(t *testing.T) {
	// 全成功且无先验时 Beta(s, 0) 无定义
	_, err := BernoulliBeta{}.Fit(Observations{Values: []float64{1, 1, 1}}, 5, nil, rand.NewSource(1))
	if !core.IsInsufficientData(err) {
		t.Errorf("want insufficient data error, got %v", err)
	}

	// 先验补齐另一侧后可抽样
	models, err := BernoulliBeta{}.Fit(Observations{Values: []float64{1, 1, 1}}, 5, &Prior{Alpha: 1, Beta: 1}, rand.NewSource(1))
	if err != nil {
		t.Fatalf("Fit with prior: %v", err)
	}
	if len(models) != 5 {
		t.Fatalf("got %d models, want 5", len(models))
	}
}
