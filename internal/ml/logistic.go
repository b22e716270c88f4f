package ml

import (
	"errors"
	"fmt"
	"math"

	"tummy-tracker/internal/common"
)

// LogisticRegression is an L2-regularised logistic model fitted with
// damped Newton iterations. The intercept is not penalised.
type LogisticRegression struct {
	C          float64   `json:"c"`
	MaxIter    int       `json:"max_iter"`
	Tol        float64   `json:"tol"`
	Weights    []float64 `json:"weights"`
	Intercept  float64   `json:"intercept"`
	Iterations int       `json:"iterations"`
}

var errSingular = errors.New("singular hessian")

func NewLogisticRegression(maxIter int) *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIter: maxIter, Tol: 1e-8}
}

func (m *LogisticRegression) Name() string { return LogisticName }

func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	width, err := validateTrainingInput(X, y)
	if err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	if m.C <= 0 {
		m.C = 1.0
	}
	if m.MaxIter <= 0 {
		m.MaxIter = common.LogisticMaxIter
	}
	if m.Tol <= 0 {
		m.Tol = 1e-8
	}

	d := width + 1 // last coefficient is the intercept
	beta := make([]float64, d)
	xi := make([]float64, d)
	xi[width] = 1

	m.Iterations = 0
	for iter := 0; iter < m.MaxIter; iter++ {
		grad := make([]float64, d)
		hess := make([][]float64, d)
		for j := range hess {
			hess[j] = make([]float64, d)
		}
		for j := 0; j < width; j++ {
			grad[j] = beta[j]
			hess[j][j] = 1
		}
		hess[width][width] = 1e-10

		for i, row := range X {
			copy(xi, row)
			p := sigmoid(dot(beta, xi))
			r := m.C * (p - float64(y[i]))
			w := m.C * p * (1 - p)
			for a := 0; a < d; a++ {
				grad[a] += r * xi[a]
				wa := w * xi[a]
				for c := a; c < d; c++ {
					hess[a][c] += wa * xi[c]
				}
			}
		}
		for a := 0; a < d; a++ {
			for c := 0; c < a; c++ {
				hess[a][c] = hess[c][a]
			}
		}

		step, err := solve(hess, grad)
		if err != nil {
			return fmt.Errorf("logistic regression: %w", err)
		}

		// Backtracking keeps every iteration a descent step.
		current := m.objective(X, y, beta)
		t := 1.0
		candidate := make([]float64, d)
		for {
			for j := range beta {
				candidate[j] = beta[j] - t*step[j]
			}
			if m.objective(X, y, candidate) <= current || t < 1e-10 {
				break
			}
			t /= 2
		}
		copy(beta, candidate)
		m.Iterations = iter + 1

		if maxAbs(step)*t < m.Tol {
			break
		}
	}

	m.Weights = beta[:width]
	m.Intercept = beta[width]
	return nil
}

func (m *LogisticRegression) PredictProba(x []float64) float64 {
	z := m.Intercept
	for j, w := range m.Weights {
		if j < len(x) {
			z += w * x[j]
		}
	}
	return sigmoid(z)
}

// objective is 0.5*||w||^2 + C * sum(logloss).
func (m *LogisticRegression) objective(X [][]float64, y []int, beta []float64) float64 {
	width := len(beta) - 1
	var reg float64
	for j := 0; j < width; j++ {
		reg += beta[j] * beta[j]
	}
	var loss float64
	for i, row := range X {
		z := beta[width]
		for j, v := range row {
			z += beta[j] * v
		}
		if y[i] == 1 {
			loss += softplus(-z)
		} else {
			loss += softplus(z)
		}
	}
	return 0.5*reg + m.C*loss
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// solve returns x with A x = b using Gaussian elimination with partial
// pivoting. A and b are modified.
func solve(A [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(A[r][col]) > math.Abs(A[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(A[pivot][col]) < 1e-300 {
			return nil, errSingular
		}
		A[col], A[pivot] = A[pivot], A[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := A[r][col] / A[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				A[r][c] -= factor * A[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < n; c++ {
			s -= A[r][c] * x[c]
		}
		x[r] = s / A[r][r]
	}
	return x, nil
}
