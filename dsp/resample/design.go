package resample

import (
	"errors"
	"fmt"
	"math"
)

// designPolyphaseFIR designs a Kaiser-windowed sinc lowpass for ratio
// up/down and splits it into up polyphase branches.
func designPolyphaseFIR(up, down int, p profile) ([][]float64, int, error) {
	if up <= 0 || down <= 0 {
		return nil, 0, ErrInvalidRatio
	}

	nTaps := p.tapsPerPhase * up

	fc := (0.5 / float64(maxInt(up, down))) * p.cutoffScale
	if fc <= 0 || fc >= 0.5 {
		return nil, 0, fmt.Errorf("resample: invalid cutoff %.6f", fc)
	}

	taps := make([]float64, nTaps)
	center := 0.5 * float64(nTaps-1)
	for n := range nTaps {
		t := float64(n) - center
		taps[n] = 2 * fc * sinc(2*fc*t) * kaiserWindow(n, nTaps, p.kaiserBeta)
	}

	var sum float64
	for _, v := range taps {
		sum += v
	}
	if sum == 0 {
		return nil, 0, errors.New("resample: designed zero-sum filter")
	}

	// Normalize for unity passband gain after interpolation by up.
	scale := float64(up) / sum
	for i := range taps {
		taps[i] *= scale
	}

	phases := make([][]float64, up)
	maxPhaseLn := 0
	for ph := range up {
		phase := make([]float64, 0, (nTaps-ph+up-1)/up)
		for i := ph; i < nTaps; i += up {
			phase = append(phase, taps[i])
		}
		if len(phase) > maxPhaseLn {
			maxPhaseLn = len(phase)
		}
		phases[ph] = phase
	}

	return phases, maxPhaseLn, nil
}

// approximateRatio finds num/den ~= v with den <= maxDen by continued
// fraction expansion.
func approximateRatio(v float64, maxDen int) (num, den int) {
	if maxDen <= 0 {
		maxDen = 4096
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, 1
	}

	a0 := math.Floor(v)
	p0, q0 := 1.0, 0.0
	p1, q1 := a0, 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac == 0 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)
		p2 := a*p1 + p0

		q2 := a*q1 + q0
		if q2 > float64(maxDen) {
			break
		}

		p0, q0 = p1, q1
		p1, q1 = p2, q2
	}

	num = int(math.Round(p1))

	den = int(math.Round(q1))
	if den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

func kaiserWindow(i, n int, beta float64) float64 {
	if n <= 1 || beta == 0 {
		return 1
	}
	t := 2*float64(i)/float64(n-1) - 1
	a := math.Sqrt(math.Max(0, 1-t*t))
	return i0(beta*a) / i0(beta)
}

// i0 approximates the zeroth-order modified Bessel function by power series.
func i0(x float64) float64 {
	sum := 1.0
	term := 1.0

	x2 := (x * x) / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)
		sum += term
		if term < 1e-16*sum {
			break
		}
	}

	return sum
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
