package reduce

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// DefaultSeed fixes the t-SNE initialization.
const DefaultSeed = 42

// TSNEConfig holds t-SNE optimization parameters.
type TSNEConfig struct {
	Perplexity        float64 // <= 0 picks min(30, (n-1)/3)
	Iterations        int
	ExaggerationIters int
	EarlyExaggeration float64
	LearningRate      float64
	InitialMomentum   float64
	FinalMomentum     float64
	Seed              uint64
	Tolerance         float64 // entropy tolerance of the perplexity search
}

// DefaultTSNEConfig returns the settings used by Reduce.
func DefaultTSNEConfig() TSNEConfig {
	return TSNEConfig{
		Iterations:        1000,
		ExaggerationIters: 250,
		EarlyExaggeration: 12,
		LearningRate:      200,
		InitialMomentum:   0.5,
		FinalMomentum:     0.8,
		Seed:              DefaultSeed,
		Tolerance:         1e-5,
	}
}

func perplexityFor(n int, configured float64) float64 {
	if configured > 0 {
		return configured
	}
	p := math.Min(30, float64(n-1)/3)
	if p < 1 {
		p = 1
	}
	return p
}

// tsne runs exact t-SNE down to two dimensions.
func tsne(data [][]float64, cfg TSNEConfig) ([]Point, error) {
	n := len(data)
	points := make([]Point, n)
	if n < 2 {
		return points, nil
	}

	p := jointProbabilities(data, perplexityFor(n, cfg.Perplexity), cfg.Tolerance)

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	y := make([][2]float64, n)
	for i := range y {
		y[i] = [2]float64{rng.NormFloat64() * 1e-4, rng.NormFloat64() * 1e-4}
	}
	update := make([][2]float64, n)
	gains := make([][2]float64, n)
	for i := range gains {
		gains[i] = [2]float64{1, 1}
	}

	num := make([]float64, n*n)
	grad := make([][2]float64, n)
	for iter := 0; iter < cfg.Iterations; iter++ {
		exaggeration, momentum := 1.0, cfg.FinalMomentum
		if iter < cfg.ExaggerationIters {
			exaggeration, momentum = cfg.EarlyExaggeration, cfg.InitialMomentum
		}

		var sumQ float64
		for i := 0; i < n; i++ {
			num[i*n+i] = 0
			for j := i + 1; j < n; j++ {
				dx, dy := y[i][0]-y[j][0], y[i][1]-y[j][1]
				q := 1 / (1 + dx*dx + dy*dy)
				num[i*n+j], num[j*n+i] = q, q
				sumQ += 2 * q
			}
		}
		sumQ = math.Max(sumQ, 1e-12)

		for i := 0; i < n; i++ {
			grad[i] = [2]float64{}
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				q := math.Max(num[i*n+j]/sumQ, 1e-12)
				mult := 4 * (exaggeration*p[i*n+j] - q) * num[i*n+j]
				grad[i][0] += mult * (y[i][0] - y[j][0])
				grad[i][1] += mult * (y[i][1] - y[j][1])
			}
		}

		for i := 0; i < n; i++ {
			for k := 0; k < 2; k++ {
				if (grad[i][k] > 0) != (update[i][k] > 0) {
					gains[i][k] += 0.2
				} else {
					gains[i][k] *= 0.8
				}
				gains[i][k] = math.Max(gains[i][k], 0.01)
				update[i][k] = momentum*update[i][k] - cfg.LearningRate*gains[i][k]*grad[i][k]
				y[i][k] += update[i][k]
			}
		}
		center(y)
	}

	for i := range y {
		points[i] = Point{X: y[i][0], Y: y[i][1]}
	}
	return points, nil
}

// jointProbabilities returns the symmetrized affinity matrix P, row-major.
func jointProbabilities(data [][]float64, perplexity, tol float64) []float64 {
	n := len(data)
	dist := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(data[i], data[j], 2)
			dist[i*n+j], dist[j*n+i] = d*d, d*d
		}
	}

	target := math.Log(perplexity)
	cond := make([]float64, n*n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		beta, lo, hi := 1.0, math.Inf(-1), math.Inf(1)
		for step := 0; step < 50; step++ {
			h := conditionalRow(dist[i*n:(i+1)*n], i, beta, row)
			diff := h - target
			if math.Abs(diff) < tol {
				break
			}
			if diff > 0 {
				lo = beta
				if math.IsInf(hi, 1) {
					beta *= 2
				} else {
					beta = (beta + hi) / 2
				}
			} else {
				hi = beta
				if math.IsInf(lo, -1) {
					beta /= 2
				} else {
					beta = (beta + lo) / 2
				}
			}
		}
		copy(cond[i*n:(i+1)*n], row)
	}

	p := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p[i*n+j] = math.Max((cond[i*n+j]+cond[j*n+i])/(2*float64(n)), 1e-12)
		}
	}
	return p
}

// conditionalRow fills row with p(j|i) for precision beta and returns its
// Shannon entropy in nats.
func conditionalRow(dist []float64, i int, beta float64, row []float64) float64 {
	minDist := math.Inf(1)
	for j, d := range dist {
		if j != i && d < minDist {
			minDist = d
		}
	}

	var sum float64
	for j, d := range dist {
		if j == i {
			row[j] = 0
			continue
		}
		// shifting by the nearest distance keeps exp from underflowing
		row[j] = math.Exp(-(d - minDist) * beta)
		sum += row[j]
	}
	if sum == 0 {
		return 0
	}

	var h float64
	for j := range row {
		if j == i {
			continue
		}
		row[j] /= sum
		if row[j] > 0 {
			h -= row[j] * math.Log(row[j])
		}
	}
	return h
}

func center(y [][2]float64) {
	var mx, my float64
	for _, p := range y {
		mx += p[0]
		my += p[1]
	}
	mx /= float64(len(y))
	my /= float64(len(y))
	for i := range y {
		y[i][0] -= mx
		y[i][1] -= my
	}
}
