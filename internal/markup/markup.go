// Package markup reads network topologies written one layer per line:
//
//	# LeNet-5
//	Input(w=32, h=32, d=1)
//	Conv(w=28, h=28, d=6, f=5, k=6, s=1, p=0, act=tanh)
//	Pool(w=14, h=14, d=6, f=2, s=2, act=tanh)
//	Flatten(w=14, h=14, d=6)
//	FC(l=10, act=tanh)
//
// Blank lines and lines starting with # are ignored. Format writes the same
// syntax, so Parse(Format(shape)) returns shape.
package markup

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
)

var (
	blockExpr = regexp.MustCompile(`^([A-Za-z]+)(\(([^\)]*)\))?$`)
	attrExpr  = regexp.MustCompile(`^ *([A-Za-z]+) *= *([A-Za-z0-9_\-\.]+) *$`)
)

// A ParseError is an error produced while parsing a topology.
type ParseError struct {
	Message string

	// Line is the line number, starting at 0.
	Line int
}

func (p *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", p.Line+1, p.Message)
}

type block struct {
	typ      layer.Type
	required []string
	optional []string
}

var blocks = map[string]block{
	"Input":   {layer.TypeInput, []string{"w", "h", "d"}, nil},
	"Conv":    {layer.TypeConv, []string{"w", "h", "d", "f", "k", "s"}, []string{"p", "act"}},
	"Pool":    {layer.TypePool, []string{"w", "h", "d", "f", "s"}, []string{"act"}},
	"FC":      {layer.TypeFC, []string{"l"}, []string{"act"}},
	"Flatten": {layer.TypeFlatten, []string{"w", "h", "d"}, nil},
}

// Parse converts markup into layer specs. The result is not validated; pass
// it to layer.Validate or net.New.
func Parse(contents string) ([]layer.Spec, error) {
	var shape []layer.Spec
	for i, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		spec, err := parseBlock(line)
		if err != nil {
			return nil, &ParseError{Message: err.Error(), Line: i}
		}
		shape = append(shape, spec)
	}
	if len(shape) == 0 {
		return nil, &ParseError{Message: "no layers"}
	}
	return shape, nil
}

// ParseFile parses the markup stored in filename.
func ParseFile(filename string) ([]layer.Spec, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read markup: %w", err)
	}
	return Parse(string(b))
}

func parseBlock(line string) (layer.Spec, error) {
	parsed := blockExpr.FindStringSubmatch(line)
	if parsed == nil {
		return layer.Spec{}, fmt.Errorf("invalid block declaration")
	}
	b, ok := blocks[parsed[1]]
	if !ok {
		return layer.Spec{}, fmt.Errorf("unknown block: %s", parsed[1])
	}
	attrs, err := parseAttrs(parsed[3])
	if err != nil {
		return layer.Spec{}, err
	}

	allowed := map[string]bool{}
	for _, name := range b.required {
		if _, ok := attrs[name]; !ok {
			return layer.Spec{}, fmt.Errorf("%s: missing attribute %s", parsed[1], name)
		}
		allowed[name] = true
	}
	for _, name := range b.optional {
		allowed[name] = true
	}

	spec := layer.Spec{Type: b.typ}
	for name, value := range attrs {
		if !allowed[name] {
			return layer.Spec{}, fmt.Errorf("%s: unexpected attribute %s", parsed[1], name)
		}
		if name == "act" {
			if spec.Activation, err = activations.ParseKind(value); err != nil {
				return layer.Spec{}, err
			}
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return layer.Spec{}, fmt.Errorf("attribute %s: %q is not an integer", name, value)
		}
		*field(&spec, name) = n
	}
	if spec.Type == layer.TypeFlatten {
		spec.L = spec.W * spec.H * spec.D
	}
	return spec, nil
}

func field(s *layer.Spec, name string) *int {
	switch name {
	case "w":
		return &s.W
	case "h":
		return &s.H
	case "d":
		return &s.D
	case "f":
		return &s.F
	case "k":
		return &s.K
	case "s":
		return &s.S
	case "p":
		return &s.P
	default:
		return &s.L
	}
}

func parseAttrs(str string) (map[string]string, error) {
	res := map[string]string{}
	if strings.TrimSpace(str) == "" {
		return res, nil
	}
	for i, x := range strings.Split(str, ",") {
		parsed := attrExpr.FindStringSubmatch(x)
		if parsed == nil {
			return nil, fmt.Errorf("bad format for attribute %d", i)
		}
		if _, ok := res[parsed[1]]; ok {
			return nil, fmt.Errorf("duplicate attribute: %s", parsed[1])
		}
		res[parsed[1]] = parsed[2]
	}
	return res, nil
}

// Format writes shape in markup syntax, one layer per line.
func Format(shape []layer.Spec) string {
	var b strings.Builder
	for _, s := range shape {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}
