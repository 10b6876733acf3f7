package forecast

import "math"

// model is a fitted polynomial of degree 1 or 2 over normalized time.
type model struct {
	degree int
	// coef holds [intercept, x, x^2]; coef[2] is zero for linear fits.
	coef [3]float64
}

func (m model) predict(x float64) float64 {
	return m.coef[0] + m.coef[1]*x + m.coef[2]*x*x
}

// curvatureGain is how much a quadratic fit must reduce training SSE over
// the linear fit before the extra degree is accepted.
const curvatureGain = 0.15

// fitModel fits a linear model and, when the series shows curvature beyond
// the linearity test, a degree-2 polynomial. Fixed cost: two closed-form
// least-squares solves.
func fitModel(xs, ys []float64) model {
	lin := fitLinear(xs, ys)
	if len(xs) < 6 {
		return lin
	}
	quad, ok := fitPoly2(xs, ys)
	if !ok {
		return lin
	}
	linSSE := sse(lin, xs, ys)
	quadSSE := sse(quad, xs, ys)
	if linSSE > 0 && quadSSE < (1-curvatureGain)*linSSE {
		return quad
	}
	return lin
}

// fitLinear is ordinary least squares for y = a + b*x.
func fitLinear(xs, ys []float64) model {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return model{degree: 1, coef: [3]float64{sumY / n, 0, 0}}
	}
	b := (n*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / n
	return model{degree: 1, coef: [3]float64{a, b, 0}}
}

// fitPoly2 solves the normal equations for y = a + b*x + c*x^2.
func fitPoly2(xs, ys []float64) (model, bool) {
	var s [5]float64 // sums of x^0 .. x^4
	var t [3]float64 // sums of y*x^0 .. y*x^2
	for i := range xs {
		x := xs[i]
		x2 := x * x
		s[0]++
		s[1] += x
		s[2] += x2
		s[3] += x2 * x
		s[4] += x2 * x2
		t[0] += ys[i]
		t[1] += ys[i] * x
		t[2] += ys[i] * x2
	}

	m := [3][4]float64{
		{s[0], s[1], s[2], t[0]},
		{s[1], s[2], s[3], t[1]},
		{s[2], s[3], s[4], t[2]},
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return model{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for row := col + 1; row < 3; row++ {
			f := m[row][col] / m[col][col]
			for k := col; k < 4; k++ {
				m[row][k] -= f * m[col][k]
			}
		}
	}
	var coef [3]float64
	for i := 2; i >= 0; i-- {
		v := m[i][3]
		for k := i + 1; k < 3; k++ {
			v -= m[i][k] * coef[k]
		}
		coef[i] = v / m[i][i]
	}
	return model{degree: 2, coef: coef}, true
}

// sse is the sum of squared residuals of a model over observations.
func sse(m model, xs, ys []float64) float64 {
	var out float64
	for i := range xs {
		r := ys[i] - m.predict(xs[i])
		out += r * r
	}
	return out
}

// residualStdErr is the residual standard error of a model over
// observations, with a degrees-of-freedom correction when possible.
func residualStdErr(m model, xs, ys []float64) float64 {
	df := len(xs) - (m.degree + 1)
	if df < 1 {
		df = 1
	}
	return math.Sqrt(sse(m, xs, ys) / float64(df))
}

// rSquared is the coefficient of determination of a model over
// observations, floored at 0.
func rSquared(m model, xs, ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	var mean float64
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var ssTot float64
	for _, y := range ys {
		d := y - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		// A flat series perfectly predicted by a flat model.
		if sse(m, xs, ys) < 1e-9 {
			return 1
		}
		return 0
	}
	r2 := 1 - sse(m, xs, ys)/ssTot
	if r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return r2
}

// mean returns the arithmetic mean, 0 for empty input.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev returns the population standard deviation around the given mean.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
