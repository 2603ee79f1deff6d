package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/textforge/config"
)

// Meta 记录实验的描述信息，随清单一起写出。
type Meta struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Author   string   `json:"author,omitempty" yaml:"author,omitempty"`
	Subject  string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Manifest 是交给外部渲染器的完整清单：渲染器按 Jobs 顺序逐个执行。
type Manifest struct {
	RunID string       `json:"run_id" yaml:"run_id"`
	Meta  Meta         `json:"meta" yaml:"meta"`
	Total int          `json:"total_images" yaml:"total_images"`
	Jobs  []config.Job `json:"jobs" yaml:"jobs"`
}

// NewManifest 为本次运行生成一个新的 run id。
func NewManifest(reg *Registry, meta Meta) Manifest {
	return Manifest{
		RunID: uuid.NewString(),
		Meta:  meta,
		Total: reg.TotalImages(),
		Jobs:  reg.Jobs(),
	}
}

// Format 是清单的序列化格式。
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor 根据文件扩展名选择格式，.yaml/.yml 为 YAML，其余为 JSON。
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode 按指定格式序列化清单。
func (m Manifest) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("序列化 YAML 清单失败: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("序列化 YAML 清单失败: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("序列化 JSON 清单失败: %w", err)
		}
		return data, nil
	}
}

// WriteManifest 将清单写入 path，必要时创建父目录。
func (m Manifest) WriteManifest(path string) error {
	data, err := m.Encode(FormatFor(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建清单目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入清单 %s 失败: %w", path, err)
	}
	return nil
}
