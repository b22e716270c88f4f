package ml

import (
	"fmt"
	"math"
)

// Scaler standardises each field to zero mean and unit variance using
// statistics captured once at training time.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-field mean and population standard deviation.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, ErrEmptyInput
	}
	width := len(X[0])
	mean := make([]float64, width)
	std := make([]float64, width)

	for _, row := range X {
		if len(row) != width {
			return nil, ErrDimension
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(X))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
	}

	return &Scaler{Mean: mean, Std: std}, nil
}

// Width is the number of fields the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.Mean) }

// Transform standardises one vector. Fields with zero training variance map to 0.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler expects %d fields, got %d", ErrDimension, len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		if s.Std[j] == 0 {
			continue
		}
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformMatrix standardises every row of X.
func (s *Scaler) TransformMatrix(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
