package params

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a parameter definition syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// FormatForPath picks a format from a file extension. Unknown extensions are text.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// LoadFile reads and parses a parameter definition file.
func LoadFile(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParameterLoadError{Path: path, Reason: "failed to read file", Err: err}
	}
	space, err := Parse(FormatForPath(path), data)
	if err != nil {
		var ple *ParameterLoadError
		if errors.As(err, &ple) && ple.Path == "" {
			ple.Path = path
		}
		return nil, err
	}
	return space, nil
}

// Parse parses definition bytes in the given format and validates the result.
func Parse(format Format, data []byte) (*Space, error) {
	var (
		fixed    []FixedParameter
		variable []VariableParameter
		err      error
	)
	switch format {
	case FormatJSON:
		fixed, variable, err = parseJSON(data)
	case FormatYAML:
		fixed, variable, err = parseYAML(data)
	case FormatText:
		fixed, variable, err = parseText(data)
	default:
		return nil, &ParameterLoadError{Reason: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return nil, err
	}
	return New(fixed, variable)
}

// ParseText parses the line-oriented text format produced by Space.String.
func ParseText(text string) (*Space, error) {
	return Parse(FormatText, []byte(text))
}

// parseJSON reads {"fixed": {name: value}, "variable": {name: [lb, ub]}}.
// The decoder is driven token by token so object key order survives.
func parseJSON(data []byte) ([]FixedParameter, []VariableParameter, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	var (
		fixed    []FixedParameter
		variable []VariableParameter
		sawVar   bool
	)
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return nil, nil, err
		}
		switch key {
		case "fixed":
			err = eachMember(dec, func(name string) error {
				var v float64
				if err := dec.Decode(&v); err != nil {
					return jsonErr(fmt.Sprintf("fixed parameter %s", name), err)
				}
				fixed = append(fixed, FixedParameter{Name: name, Value: v})
				return nil
			})
		case "variable":
			sawVar = true
			err = eachMember(dec, func(name string) error {
				var b []float64
				if err := dec.Decode(&b); err != nil {
					return jsonErr(fmt.Sprintf("variable parameter %s", name), err)
				}
				vp, err := boundsPair(name, b)
				if err != nil {
					return err
				}
				variable = append(variable, vp)
				return nil
			})
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, nil, jsonErr("", err)
		}
		return nil, nil, &ParameterLoadError{Reason: fmt.Sprintf("unexpected %v after parameter object", tok)}
	}
	if !sawVar {
		return nil, nil, &ParameterLoadError{Reason: `missing "variable" section`}
	}
	return fixed, variable, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return jsonErr("", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &ParameterLoadError{Reason: fmt.Sprintf("expected %q, got %v", want, tok)}
	}
	return nil
}

func nextKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", jsonErr("", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", &ParameterLoadError{Reason: fmt.Sprintf("expected object key, got %v", tok)}
	}
	return key, nil
}

func eachMember(dec *json.Decoder, fn func(name string) error) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		name, err := nextKey(dec)
		if err != nil {
			return err
		}
		if err := fn(name); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func jsonErr(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	reason := "invalid json"
	if what != "" {
		reason = what + ": invalid json"
	}
	return &ParameterLoadError{Reason: reason, Err: err}
}

func boundsPair(name string, b []float64) (VariableParameter, error) {
	if len(b) != 2 {
		return VariableParameter{}, &ParameterLoadError{
			Reason: fmt.Sprintf("variable parameter %s: expected [lower, upper], got %d values", name, len(b)),
		}
	}
	return VariableParameter{Name: name, Lower: b[0], Upper: b[1]}, nil
}

// parseYAML reads the same shape as parseJSON; yaml.Node keeps mapping order.
func parseYAML(data []byte) ([]FixedParameter, []VariableParameter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &ParameterLoadError{Reason: "invalid yaml", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, &ParameterLoadError{Reason: "expected a mapping at the top level"}
	}

	var (
		fixed    []FixedParameter
		variable []VariableParameter
		sawVar   bool
	)
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, section := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "fixed":
			if err := eachYAMLMember(section, func(name string, n *yaml.Node) error {
				var v float64
				if err := n.Decode(&v); err != nil {
					return &ParameterLoadError{Line: n.Line, Reason: fmt.Sprintf("fixed parameter %s", name), Err: err}
				}
				fixed = append(fixed, FixedParameter{Name: name, Value: v})
				return nil
			}); err != nil {
				return nil, nil, err
			}
		case "variable":
			sawVar = true
			if err := eachYAMLMember(section, func(name string, n *yaml.Node) error {
				var b []float64
				if err := n.Decode(&b); err != nil {
					return &ParameterLoadError{Line: n.Line, Reason: fmt.Sprintf("variable parameter %s", name), Err: err}
				}
				vp, err := boundsPair(name, b)
				if err != nil {
					return err
				}
				variable = append(variable, vp)
				return nil
			}); err != nil {
				return nil, nil, err
			}
		}
	}
	if !sawVar {
		return nil, nil, &ParameterLoadError{Reason: `missing "variable" section`}
	}
	return fixed, variable, nil
}

func eachYAMLMember(section *yaml.Node, fn func(name string, n *yaml.Node) error) error {
	if section.Kind != yaml.MappingNode {
		if section.Tag == "!!null" {
			return nil
		}
		return &ParameterLoadError{Line: section.Line, Reason: "expected a mapping of parameters"}
	}
	for i := 0; i+1 < len(section.Content); i += 2 {
		if err := fn(section.Content[i].Value, section.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

var (
	fixedLine    = regexp.MustCompile(`^(.+?)\s*=\s*(\S+)$`)
	variableLine = regexp.MustCompile(`^(.+?)\s+in\s+\[\s*(\S+)\s+to\s+(\S+)\s*\]$`)
)

// parseText reads "name = value" and "name in [lower to upper]" lines.
// Blank lines, '#' comments and section headers ending in ':' are ignored.
func parseText(data []byte) ([]FixedParameter, []VariableParameter, error) {
	var (
		fixed    []FixedParameter
		variable []VariableParameter
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasSuffix(line, ":") {
			continue
		}
		if m := variableLine.FindStringSubmatch(line); m != nil {
			lo, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, nil, &ParameterLoadError{Line: lineNo, Reason: "invalid lower bound", Err: err}
			}
			hi, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return nil, nil, &ParameterLoadError{Line: lineNo, Reason: "invalid upper bound", Err: err}
			}
			variable = append(variable, VariableParameter{Name: m[1], Lower: lo, Upper: hi})
			continue
		}
		if m := fixedLine.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, nil, &ParameterLoadError{Line: lineNo, Reason: "invalid value", Err: err}
			}
			fixed = append(fixed, FixedParameter{Name: m[1], Value: v})
			continue
		}
		return nil, nil, &ParameterLoadError{Line: lineNo, Reason: fmt.Sprintf("unrecognised line %q", line)}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &ParameterLoadError{Reason: "read failed", Err: err}
	}
	return fixed, variable, nil
}
