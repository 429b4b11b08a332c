// Package params models the fixed and variable simulation parameters a search
// runs over, and loads them from definition files.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
)

// FixedParameter is a named value sent unchanged with every evaluation.
type FixedParameter struct {
	Name  string
	Value float64
}

// VariableParameter is a named dimension of the search space.
type VariableParameter struct {
	Name  string
	Lower float64
	Upper float64
}

// Space owns the ordered fixed and variable parameters. The position of a
// VariableParameter defines the matching component of every candidate vector.
// A Space is read-only once built and may be shared between goroutines.
type Space struct {
	Fixed    []FixedParameter
	Variable []VariableParameter
}

// New builds a Space and validates it.
func New(fixed []FixedParameter, variable []VariableParameter) (*Space, error) {
	s := &Space{
		Fixed:    append([]FixedParameter(nil), fixed...),
		Variable: append([]VariableParameter(nil), variable...),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks names, finiteness and bound ordering.
func (s *Space) Validate() error {
	if len(s.Variable) == 0 {
		return &ParameterLoadError{Reason: "no variable parameters defined"}
	}
	seen := make(map[string]bool, len(s.Fixed)+len(s.Variable))
	check := func(name string) error {
		if strings.TrimSpace(name) == "" {
			return &ParameterLoadError{Reason: "parameter name cannot be empty"}
		}
		if seen[name] {
			return &ParameterLoadError{Reason: fmt.Sprintf("duplicate parameter name: %s", name)}
		}
		seen[name] = true
		return nil
	}
	for _, fp := range s.Fixed {
		if err := check(fp.Name); err != nil {
			return err
		}
		if !utils.IsFinite(fp.Value) {
			return &ParameterLoadError{Reason: fmt.Sprintf("fixed parameter %s: value must be finite", fp.Name)}
		}
	}
	for _, vp := range s.Variable {
		if err := check(vp.Name); err != nil {
			return err
		}
		if !utils.IsFinite(vp.Lower) || !utils.IsFinite(vp.Upper) {
			return &ParameterLoadError{Reason: fmt.Sprintf("variable parameter %s: bounds must be finite", vp.Name)}
		}
		if vp.Lower > vp.Upper {
			return &ParameterLoadError{Reason: fmt.Sprintf("variable parameter %s: lower bound %s exceeds upper bound %s",
				vp.Name, formatFloat(vp.Lower), formatFloat(vp.Upper))}
		}
	}
	return nil
}

// Dim returns the number of variable parameters.
func (s *Space) Dim() int {
	return len(s.Variable)
}

// Bounds returns one [lower, upper] pair per variable parameter.
func (s *Space) Bounds() [][2]float64 {
	out := make([][2]float64, len(s.Variable))
	for i, vp := range s.Variable {
		out[i] = [2]float64{vp.Lower, vp.Upper}
	}
	return out
}

// Names returns the variable parameter names in candidate order.
func (s *Space) Names() []string {
	out := make([]string, len(s.Variable))
	for i, vp := range s.Variable {
		out[i] = vp.Name
	}
	return out
}

// Assignment is one named value of a candidate.
type Assignment struct {
	Name  string
	Value float64
}

// Describe pairs candidate components with their parameter names.
func (s *Space) Describe(candidate []float64) []Assignment {
	out := make([]Assignment, 0, len(candidate))
	for i, v := range candidate {
		if i >= len(s.Variable) {
			break
		}
		out = append(out, Assignment{Name: s.Variable[i].Name, Value: v})
	}
	return out
}

// String renders the space in the line-oriented text format accepted by ParseText.
func (s *Space) String() string {
	var b strings.Builder
	b.WriteString("Fixed parameters:\n")
	for _, fp := range s.Fixed {
		fmt.Fprintf(&b, "\t%s = %s\n", fp.Name, formatFloat(fp.Value))
	}
	b.WriteString("\nVariable parameters:\n")
	for _, vp := range s.Variable {
		fmt.Fprintf(&b, "\t%s in [%s to %s]\n", vp.Name, formatFloat(vp.Lower), formatFloat(vp.Upper))
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
