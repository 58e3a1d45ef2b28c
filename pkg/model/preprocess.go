package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

// unknown category policies; empty means error
const (
	UnknownIgnore = "ignore"
	UnknownError  = "error"
)

type NumericColumn struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean,omitempty"`
	Scale float64 `json:"scale,omitempty"`
}

type CategoricalColumn struct {
	Name          string   `json:"name"`
	Categories    []string `json:"categories"`
	HandleUnknown string   `json:"handle_unknown,omitempty"`
}

// Preprocessor turns a record into the dense vector the estimator was fit
// on: numeric columns first, then one indicator per category.
type Preprocessor struct {
	Numeric     []NumericColumn     `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
}

func (p *Preprocessor) validate() error {
	seen := make(map[string]bool)
	for _, c := range p.Numeric {
		if c.Name == "" {
			return errors.New("numeric column without name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column: %s", c.Name)
		}
		if c.Scale < 0 {
			return fmt.Errorf("column %s: negative scale", c.Name)
		}
		seen[c.Name] = true
	}
	for _, c := range p.Categorical {
		if c.Name == "" {
			return errors.New("categorical column without name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column: %s", c.Name)
		}
		if len(c.Categories) == 0 {
			return fmt.Errorf("column %s: no categories", c.Name)
		}
		switch c.HandleUnknown {
		case "", UnknownIgnore, UnknownError:
		default:
			return fmt.Errorf("column %s: invalid handle_unknown %q", c.Name, c.HandleUnknown)
		}
		seen[c.Name] = true
	}
	if len(seen) == 0 {
		return errors.New("no input columns")
	}
	return nil
}

// Width is the number of expanded features.
func (p *Preprocessor) Width() int {
	n := len(p.Numeric)
	for _, c := range p.Categorical {
		n += len(c.Categories)
	}
	return n
}

// Features returns the expanded feature names, one-hot columns named
// <column>_<category>.
func (p *Preprocessor) Features() []string {
	out := make([]string, 0, p.Width())
	for _, c := range p.Numeric {
		out = append(out, c.Name)
	}
	for _, c := range p.Categorical {
		for _, v := range c.Categories {
			out = append(out, c.Name+"_"+v)
		}
	}
	return out
}

// Transform encodes r. Missing numeric data stays NaN; estimators decide
// whether they can handle it.
func (p *Preprocessor) Transform(r feature.Record) ([]float64, error) {
	x := make([]float64, 0, p.Width())

	for _, c := range p.Numeric {
		v, ok := r[c.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrSchema, c.Name)
		}
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("%w: column %s expects a number, got %s", ErrSchema, c.Name, v.Kind())
		}
		if c.Scale > 0 && !math.IsNaN(f) {
			f = (f - c.Mean) / c.Scale
		}
		x = append(x, f)
	}

	for _, c := range p.Categorical {
		v, ok := r[c.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrSchema, c.Name)
		}
		s, ok := v.Str()
		if !ok {
			return nil, fmt.Errorf("%w: column %s expects a string, got %s", ErrSchema, c.Name, v.Kind())
		}
		found := false
		for _, cat := range c.Categories {
			if cat == s {
				x = append(x, 1)
				found = true
			} else {
				x = append(x, 0)
			}
		}
		if !found && c.HandleUnknown != UnknownIgnore {
			return nil, fmt.Errorf("%w: column %s has unknown category %q", ErrSchema, c.Name, s)
		}
	}

	return x, nil
}
