package ensemble

import (
	"math"
	"time"
)

// Weighting 是可选的时间衰减加权：越旧的观测权重越低，
// 权重 = 0.5^(距今时长 / HalfLife)。零值时间的观测视为无时间信息，权重取 1。
type Weighting struct {
	HalfLife time.Duration
	// Now 为衰减基准时刻；零值表示拟合时取 time.Now()
	Now time.Time
}

// weights 为每条观测计算权重；w 为 nil 或 HalfLife <= 0 时返回 nil（等权）。
func (w *Weighting) weights(times []time.Time) []float64 {
	if w == nil || w.HalfLife <= 0 || len(times) == 0 {
		return nil
	}
	now := w.Now
	if now.IsZero() {
		now = time.Now()
	}
	out := make([]float64, len(times))
	for i, t := range times {
		if t.IsZero() {
			out[i] = 1
			continue
		}
		age := now.Sub(t)
		if age < 0 {
			age = 0
		}
		out[i] = math.Pow(0.5, float64(age)/float64(w.HalfLife))
	}
	return out
}
