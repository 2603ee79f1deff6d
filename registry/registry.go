// Package registry assembles the ordered, validated job list of one run.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ByLCY/textforge/config"
)

// ErrOutputCollision 表示两个任务解析到同一个输出目录。
var ErrOutputCollision = errors.New("registry: output directory collision")

// Builder 构造一个或多个任务。所有构造函数统一返回序列，长度至少为 1。
type Builder func() ([]config.Job, error)

// Entry 是带名字的构造函数，名字只用于错误信息与日志。
type Entry struct {
	Name  string
	Build Builder
}

// Registry 是一次运行的有序任务清单，组装完成后只读。
type Registry struct {
	jobs []config.Job
}

// Assemble 依次调用各构造函数，按调用顺序展开结果并逐个校验。
// 遇到第一个错误立即返回，不会返回部分结果。
func Assemble(entries ...Entry) (*Registry, error) {
	var jobs []config.Job
	owners := map[string]string{}
	for i, entry := range entries {
		if entry.Build == nil {
			return nil, fmt.Errorf("registry: builder %d (%s) is nil", i, entry.Name)
		}
		built, err := entry.Build()
		if err != nil {
			return nil, fmt.Errorf("registry: builder %s: %w", entry.Name, err)
		}
		if len(built) == 0 {
			return nil, fmt.Errorf("registry: builder %s returned no jobs", entry.Name)
		}
		for _, job := range built {
			if err := job.Validate(); err != nil {
				return nil, fmt.Errorf("registry: builder %s: %w", entry.Name, err)
			}
			key := filepath.Clean(job.SaveDir)
			if prev, ok := owners[key]; ok {
				return nil, fmt.Errorf("%w: %s is used by both %s and %s", ErrOutputCollision, key, prev, job.Name)
			}
			owners[key] = job.Name
			jobs = append(jobs, job.Clone())
		}
	}
	return &Registry{jobs: jobs}, nil
}

// Len 返回任务数量。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.jobs)
}

// At 返回第 i 个任务的副本。
func (r *Registry) At(i int) config.Job { return r.jobs[i].Clone() }

// Jobs 返回全部任务的副本，顺序即渲染顺序。
func (r *Registry) Jobs() []config.Job {
	if r == nil {
		return nil
	}
	out := make([]config.Job, len(r.jobs))
	for i, job := range r.jobs {
		out[i] = job.Clone()
	}
	return out
}

// SaveDirs 按顺序列出所有输出目录。
func (r *Registry) SaveDirs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		out[i] = job.SaveDir
	}
	return out
}

// TotalImages 返回整次运行计划生成的图片总数。
func (r *Registry) TotalImages() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, job := range r.jobs {
		total += job.NumImage
	}
	return total
}
