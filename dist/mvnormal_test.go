package dist

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/rushteam/bagkit/core"
)

func TestMVNormalInverseWishart_PointEstimate(t *testing.T) {
	obs := VectorObservations{
		Attrs: []string{"goals", "shots"},
		Rows: [][]float64{
			{1, 10},
			{3, 14},
			{2, 12},
		},
	}
	models, err := MVNormalInverseWishart{}.FitVector(obs, 1, nil, nil)
	if err != nil {
		t.Fatalf("FitVector: %v", err)
	}
	m, ok := models[0].(*MVNormalModel)
	if !ok {
		t.Fatalf("got %T, want *MVNormalModel", models[0])
	}
	if m.Mu[0] != 2 || m.Mu[1] != 12 {
		t.Errorf("mean = %v, want [2 12]", m.Mu)
	}
	// S/n 的非对角元：Σ(x-x̄)(y-ȳ)/n = (2+2)/3
	if got := m.Covariance().At(0, 1); math.Abs(got-4.0/3.0) > 1e-12 {
		t.Errorf("covariance = %v, want %v", got, 4.0/3.0)
	}
}

func TestMVNormalInverseWishart_PosteriorDraws(t *testing.T) {
	obs := VectorObservations{
		Attrs: []string{"a", "b"},
		Rows: [][]float64{
			{1, 2}, {2, 3}, {3, 2}, {2, 1}, {1, 3}, {3, 1}, {2, 2}, {2, 2},
		},
	}
	const numDraws = 500
	models, err := MVNormalInverseWishart{}.FitVector(obs, numDraws, nil, rand.NewSource(13))
	if err != nil {
		t.Fatalf("FitVector: %v", err)
	}
	if len(models) != numDraws {
		t.Fatalf("got %d models, want %d", len(models), numDraws)
	}
	var sumA, sumB float64
	for _, m := range models {
		mu := m.Mean()
		if len(mu) != 2 {
			t.Fatalf("draw has dim %d, want 2", len(mu))
		}
		sumA += mu[0]
		sumB += mu[1]
	}
	if avg := sumA / numDraws; math.Abs(avg-2) > 0.15 {
		t.Errorf("empirical mean of attr a = %v, want 2±0.15", avg)
	}
	if avg := sumB / numDraws; math.Abs(avg-2) > 0.15 {
		t.Errorf("empirical mean of attr b = %v, want 2±0.15", avg)
	}
}

func TestMVNormalInverseWishart_SchemaErrors(t *testing.T) {
	_, err := MVNormalInverseWishart{}.FitVector(VectorObservations{}, 1, nil, nil)
	if !core.IsSchema(err) {
		t.Errorf("empty attrs: want schema error, got %v", err)
	}

	_, err = MVNormalInverseWishart{}.FitVector(VectorObservations{
		Attrs: []string{"a", "b"},
		Rows:  [][]float64{{1}},
	}, 1, nil, nil)
	if !core.IsSchema(err) {
		t.Errorf("ragged row: want schema error, got %v", err)
	}
}

func TestMVNormalInverseWishart_EmptyHistory(t *testing.T) {
	obs := VectorObservations{Attrs: []string{"a", "b"}}
	_, err := MVNormalInverseWishart{}.FitVector(obs, 5, nil, rand.NewSource(1))
	if !core.IsInsufficientData(err) {
		t.Errorf("want insufficient data error, got %v", err)
	}
}

func TestMVNormalModel_Sample(t *testing.T) {
	obs := VectorObservations{
		Attrs: []string{"a", "b"},
		Rows:  [][]float64{{1, 5}, {3, 7}, {2, 6}, {2, 6}},
	}
	models, err := MVNormalInverseWishart{}.FitVector(obs, 1, nil, nil)
	if err != nil {
		t.Fatalf("FitVector: %v", err)
	}
	rows := models[0].Sample(100, rand.NewSource(3))
	if len(rows) != 100 {
		t.Fatalf("got %d rows, want 100", len(rows))
	}
	for _, r := range rows {
		if len(r) != 2 {
			t.Fatalf("row has %d values, want 2", len(r))
		}
	}
}
