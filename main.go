package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ByLCY/textforge/binding"
	"github.com/ByLCY/textforge/catalog"
	"github.com/ByLCY/textforge/fonts"
	"github.com/ByLCY/textforge/logging"
	"github.com/ByLCY/textforge/plan"
	"github.com/ByLCY/textforge/queue"
	"github.com/ByLCY/textforge/registry"
	"github.com/ByLCY/textforge/renderer"
	canvasrenderer "github.com/ByLCY/textforge/renderer/canvas"
)

func main() {
	s, err := parseSettings(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Development: s.Dev, File: s.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var r renderer.Renderer = canvasrenderer.NewRenderer(canvasrenderer.Options{FontPath: s.SheetFont})
	res, err := run(ctx, s, r, logger)
	if err != nil {
		logger.Error("生成任务清单失败", zap.Error(err))
		color.New(color.FgRed).Fprintf(os.Stderr, "失败: %v\n", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, res)
}

// result 记录一次运行的产物，用于最后的摘要输出。
type result struct {
	Plan     *plan.Plan
	Manifest registry.Manifest
	Written  string
	Sheet    string
	Queued   int
	Queue    string
	Missing  []string
}

// run 串联编译、清单输出、审阅页与队列推送。
func run(ctx context.Context, s settings, r renderer.Renderer, logger *zap.Logger) (*result, error) {
	vars, err := binding.ParseAssignments(s.Vars)
	if err != nil {
		return nil, err
	}

	var p *plan.Plan
	opts := plan.Options{DataDir: s.DataDir, Logger: logger}
	if s.Input != "" {
		p, err = plan.CompileFile(s.Input, vars, opts)
	} else {
		p, err = plan.Standard(catalog.NewEnv(s.DataDir), opts)
	}
	if err != nil {
		return nil, err
	}

	res := &result{Plan: p, Manifest: p.Manifest()}
	res.Missing = checkFonts(p.Env, logger)

	if s.Manifest != "" {
		if err := res.Manifest.WriteManifest(s.Manifest); err != nil {
			return nil, err
		}
		res.Written = s.Manifest
		logger.Info("manifest written", zap.String("path", s.Manifest), zap.String("run_id", res.Manifest.RunID))
	}

	if s.Sheet != "" {
		if r == nil {
			return nil, fmt.Errorf("renderer 不能为空")
		}
		if err := writeSheet(r, p, s.Sheet); err != nil {
			return nil, err
		}
		res.Sheet = s.Sheet
		logger.Info("review sheet written", zap.String("path", s.Sheet))
	}

	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		defer rdb.Close()
		q := queue.NewRedisQueue(rdb, s.Queue)
		n, err := q.Push(ctx, res.Manifest)
		if err != nil {
			return nil, err
		}
		res.Queued, res.Queue = n, q.Name()
		logger.Info("jobs queued", zap.Int("count", n), zap.String("queue", q.Name()))
	}
	return res, nil
}

func writeSheet(r renderer.Renderer, p *plan.Plan, path string) error {
	pdfBytes, err := r.Render(p)
	if err != nil {
		return fmt.Errorf("渲染审阅 PDF 失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

// checkFonts 只做提示：字体列表缺失或字体不存在时渲染器会失败，但清单仍然可以生成。
func checkFonts(env catalog.Env, logger *zap.Logger) []string {
	missing, err := fonts.Missing(env.FontDir, env.FontListFile)
	if err != nil {
		logger.Warn("无法读取字体列表", zap.String("font_list", env.FontListFile), zap.Error(err))
		return nil
	}
	for _, name := range missing {
		logger.Warn("字体不存在", zap.String("font", name), zap.String("font_dir", env.FontDir))
	}
	return missing
}

func printSummary(w io.Writer, res *result) {
	if res == nil || res.Plan == nil {
		return
	}
	header := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	header.Fprintf(w, "%s %s\n", res.Plan.Name, res.Plan.Version)
	for i, job := range res.Manifest.Jobs {
		fmt.Fprintf(w, "  %2d. %-28s %5d  ", i+1, job.Name, job.NumImage)
		dim.Fprintln(w, job.SaveDir)
	}
	ok.Fprintf(w, "共 %d 个任务，%d 张图片（run %s）\n", len(res.Manifest.Jobs), res.Manifest.Total, res.Manifest.RunID)
	if res.Written != "" {
		fmt.Fprintf(w, "已写出清单：%s\n", res.Written)
	}
	if res.Sheet != "" {
		fmt.Fprintf(w, "已生成审阅 PDF：%s\n", res.Sheet)
	}
	if res.Queued > 0 {
		fmt.Fprintf(w, "已推送 %d 个任务到 %s\n", res.Queued, res.Queue)
	}
	if len(res.Missing) > 0 {
		warn.Fprintf(w, "缺少 %d 个字体\n", len(res.Missing))
	}
}
