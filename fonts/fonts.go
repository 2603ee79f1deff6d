// Package fonts 负责读取实验的字体列表与字体文件。
package fonts

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10regular"
)

// ErrNoFont 表示字体列表中没有可读取的字体。
var ErrNoFont = errors.New("fonts: no usable font")

// FallbackName 是内置后备字体的名字。
const FallbackName = "lmroman10-regular"

// Fallback 返回内置的 Latin Modern Roman 字体，用于没有配置字体的场景。
func Fallback() []byte { return lmroman10regular.TTF }

// ReadList 读取字体列表文件：每行一个相对于字体目录的文件名，
// 空行与 # 开头的行会被忽略。
func ReadList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体列表 %s 失败: %w", path, err)
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取字体列表 %s 失败: %w", path, err)
	}
	return names, nil
}

// Load 读取 dir 下的字体文件；name 为绝对路径时忽略 dir。
func Load(dir, name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	return data, nil
}

// First 按列表顺序返回第一个可以读取的字体。
func First(dir, listFile string) (string, []byte, error) {
	names, err := ReadList(listFile)
	if err != nil {
		return "", nil, err
	}
	for _, name := range names {
		data, err := Load(dir, name)
		if err == nil && len(data) > 0 {
			return name, data, nil
		}
	}
	return "", nil, fmt.Errorf("%w in %s", ErrNoFont, listFile)
}

// Missing 列出字体列表中存在但字体目录里找不到的文件。
func Missing(dir, listFile string) ([]string, error) {
	names, err := ReadList(listFile)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, name := range names {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
