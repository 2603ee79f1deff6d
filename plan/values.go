package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/textforge/binding"
	"github.com/ByLCY/textforge/dsl"
	"github.com/ByLCY/textforge/param"
)

// scope 在编译期间为取值函数提供变量表。
type scope struct {
	vars binding.Vars
}

func invalid(pos lexer.Position, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidStatement, pos, fmt.Sprintf(format, args...))
}

// str 返回标量值的文本；字符串中的 ${...} 会被展开，无法解析时报错。
func (s scope) str(pos lexer.Position, val *dsl.Value) (string, error) {
	if val == nil {
		return "", invalid(pos, "missing value")
	}
	switch {
	case val.String != nil:
		out, err := binding.Expand(string(*val.String), s.vars)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrInvalidStatement, pos, err)
		}
		return out, nil
	case val.Number != nil:
		return *val.Number, nil
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String(), nil
	default:
		return "", invalid(pos, "expected a scalar value")
	}
}

// strs 接受数组或单个标量。
func (s scope) strs(pos lexer.Position, val *dsl.Value) ([]string, error) {
	if val != nil && val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			v, err := s.str(pos, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	v, err := s.str(pos, val)
	if err != nil {
		return nil, err
	}
	return []string{v}, nil
}

func (s scope) number(pos lexer.Position, val *dsl.Value) (float64, error) {
	raw, err := s.str(pos, val)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalid(pos, "expected a number, got %q", raw)
	}
	return f, nil
}

func (s scope) integer(pos lexer.Position, val *dsl.Value) (int, error) {
	raw, err := s.str(pos, val)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(pos, "expected an integer, got %q", raw)
	}
	return n, nil
}

func (s scope) flag(pos lexer.Position, val *dsl.Value) (bool, error) {
	raw, err := s.str(pos, val)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(raw) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, invalid(pos, "expected a boolean, got %q", raw)
}

func (s scope) floats(pos lexer.Position, val *dsl.Value) ([]float64, error) {
	raws, err := s.strs(pos, val)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raws))
	for i, raw := range raws {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalid(pos, "expected a number, got %q", raw)
		}
		out[i] = f
	}
	return out, nil
}

// floatRange 接受单个数字（固定值）或 [low, high]。
func (s scope) floatRange(pos lexer.Position, val *dsl.Value) (param.Range[float64], error) {
	vs, err := s.floats(pos, val)
	if err != nil {
		return param.Range[float64]{}, err
	}
	switch len(vs) {
	case 1:
		return param.Fixed(vs[0]), nil
	case 2:
		return param.Between(vs[0], vs[1]), nil
	}
	return param.Range[float64]{}, invalid(pos, "expected a number or [low, high], got %d values", len(vs))
}

func (s scope) intRange(pos lexer.Position, val *dsl.Value) (param.Range[int], error) {
	raws, err := s.strs(pos, val)
	if err != nil {
		return param.Range[int]{}, err
	}
	vs := make([]int, len(raws))
	for i, raw := range raws {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return param.Range[int]{}, invalid(pos, "expected an integer, got %q", raw)
		}
		vs[i] = n
	}
	switch len(vs) {
	case 1:
		return param.Fixed(vs[0]), nil
	case 2:
		return param.Between(vs[0], vs[1]), nil
	}
	return param.Range[int]{}, invalid(pos, "expected an integer or [low, high], got %d values", len(vs))
}

// normalizeKey 统一键名：小写，'-' 视同 '_'。
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// assignments 收集块中的赋值语句；遇到命令或文本时报错。
func assignments(block *dsl.Block) ([]*dsl.Assignment, error) {
	if block == nil {
		return nil, nil
	}
	var as []*dsl.Assignment
	for _, st := range block.Statements {
		switch {
		case st.Assignment != nil:
			as = append(as, st.Assignment)
		case st.Command != nil:
			return nil, invalid(st.Command.Pos, "unexpected command %q", st.Command.Name)
		default:
			return nil, fmt.Errorf("%w: unexpected text literal", ErrInvalidStatement)
		}
	}
	return as, nil
}

func objectEntries(pos lexer.Position, val *dsl.Value) ([]*dsl.Assignment, error) {
	if val == nil || val.Object == nil {
		return nil, invalid(pos, "expected an inline object { key: value }")
	}
	return val.Object.Entries, nil
}
