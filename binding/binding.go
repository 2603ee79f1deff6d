// Package binding 实现实验文件中字符串的 ${path.to.value} 变量替换。
package binding

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrUnresolved 表示严格模式下存在无法解析的占位符。
var ErrUnresolved = errors.New("binding: unresolved placeholder")

// EnvPrefix 开头的路径从进程环境变量读取，例如 ${env.HOME}。
const EnvPrefix = "env."

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是嵌套的变量表，值可以是标量、map[string]any 或 []any。
type Vars map[string]any

// Set 按点分路径写入值，中间层级不存在时自动创建。
func (v Vars) Set(path string, value any) error {
	segments := strings.Split(path, ".")
	current := map[string]any(v)
	for i, seg := range segments {
		if seg == "" {
			return fmt.Errorf("binding: empty segment in %q", path)
		}
		if i == len(segments)-1 {
			current[seg] = value
			return nil
		}
		next, ok := current[seg].(map[string]any)
		if !ok {
			if _, exists := current[seg]; exists {
				return fmt.Errorf("binding: %q is not an object", strings.Join(segments[:i+1], "."))
			}
			next = map[string]any{}
			current[seg] = next
		}
		current = next
	}
	return nil
}

// ParseAssignments 解析命令行上的 key=value 列表。
func ParseAssignments(pairs []string) (Vars, error) {
	vars := Vars{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("binding: expected key=value, got %q", pair)
		}
		if err := vars.Set(strings.TrimSpace(key), value); err != nil {
			return nil, err
		}
	}
	return vars, nil
}

// Interpolate 将文本中的 ${path.to.value} 替换为 vars 中的值。
// 路径不存在时保留原占位符。
func Interpolate(text string, vars Vars) string {
	out, _ := expand(text, vars)
	return out
}

// Expand 与 Interpolate 相同，但任何占位符无法解析时返回 ErrUnresolved，
// 错误信息按字母序列出全部未解析的路径。
func Expand(text string, vars Vars) (string, error) {
	out, missing := expand(text, vars)
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: %s in %q", ErrUnresolved, strings.Join(missing, ", "), text)
	}
	return out, nil
}

func expand(text string, vars Vars) (string, []string) {
	var missing []string
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path := strings.TrimSpace(groups[1])
		if path == "" {
			missing = append(missing, match)
			return match
		}
		if val, ok := Lookup(vars, path); ok {
			return fmt.Sprint(val)
		}
		missing = append(missing, path)
		return match
	})
	return out, missing
}

// Lookup 解析单个路径；env. 前缀的路径读取环境变量，其余在 vars 中查找。
func Lookup(vars Vars, path string) (any, bool) {
	if name, ok := strings.CutPrefix(path, EnvPrefix); ok {
		return os.LookupEnv(name)
	}
	if vars == nil {
		return nil, false
	}
	return resolvePath(map[string]any(vars), path)
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// parseSegment 拆分 name[0][1] 形式的路径段。
func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case Vars:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
