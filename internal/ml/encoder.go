package ml

import "fmt"

// CategoricalEncoder maps the values of one categorical field to integer
// codes in first-seen order. The mapping is frozen by Fit.
type CategoricalEncoder struct {
	Field   string   `json:"field"`
	Classes []string `json:"classes"`

	index  map[string]int
	frozen bool
}

func NewCategoricalEncoder(field string) *CategoricalEncoder {
	return &CategoricalEncoder{Field: field}
}

// restoreEncoder rebuilds a frozen encoder from a persisted class list.
func restoreEncoder(field string, classes []string) (*CategoricalEncoder, error) {
	e := NewCategoricalEncoder(field)
	if err := e.Fit(classes); err != nil {
		return nil, err
	}
	if len(e.Classes) != len(classes) {
		return nil, fmt.Errorf("%w: duplicate classes for %s", ErrCorruptedArtifact, field)
	}
	return e, nil
}

// Fit assigns codes to every distinct value and freezes the encoder.
func (e *CategoricalEncoder) Fit(values []string) error {
	if e.frozen {
		return ErrEncoderFrozen
	}
	if len(values) == 0 {
		return ErrEmptyInput
	}

	e.index = make(map[string]int, len(values))
	e.Classes = e.Classes[:0]
	for _, v := range values {
		if _, ok := e.index[v]; ok {
			continue
		}
		e.index[v] = len(e.Classes)
		e.Classes = append(e.Classes, v)
	}
	e.frozen = true
	return nil
}

// Transform returns the code assigned to value at fit time.
func (e *CategoricalEncoder) Transform(value string) (float64, error) {
	code, ok := e.index[value]
	if !ok {
		return 0, fmt.Errorf("%w: %s=%q", ErrUnseenCategory, e.Field, value)
	}
	return float64(code), nil
}

// Known reports whether value was seen at fit time.
func (e *CategoricalEncoder) Known(value string) bool {
	_, ok := e.index[value]
	return ok
}
