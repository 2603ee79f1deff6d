package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ByLCY/textforge/queue"
)

// 可以写在 .env 中的环境变量。
const (
	envDataDir   = "TEXTFORGE_DATA_DIR"
	envRedisAddr = "TEXTFORGE_REDIS_ADDR"
	envQueue     = "TEXTFORGE_QUEUE"
	envLogFile   = "TEXTFORGE_LOG_FILE"
	envDev       = "TEXTFORGE_DEV"
)

// settings 汇总命令行参数与环境变量，命令行优先。
type settings struct {
	Input     string
	Manifest  string
	Sheet     string
	SheetFont string
	DataDir   string
	RedisAddr string
	Queue     string
	LogFile   string
	Dev       bool
	EnvFile   string
	Vars      []string
}

func parseSettings(args []string, stderr io.Writer) (settings, error) {
	var s settings
	flags := flag.NewFlagSet("textforge", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&s.Input, "in", "", "实验文件路径；为空时生成标准效果实验")
	flags.StringVar(&s.Manifest, "manifest", "output/manifest.json", "任务清单输出路径（.json/.yaml）")
	flags.StringVar(&s.Sheet, "sheet", "", "审阅 PDF 输出路径")
	flags.StringVar(&s.SheetFont, "sheet-font", "", "审阅 PDF 使用的字体文件")
	flags.StringVar(&s.DataDir, "data", "", "数据目录（未在实验文件中声明 paths.data 时使用）")
	flags.StringVar(&s.RedisAddr, "redis", "", "Redis 地址，设置后把任务推送到队列")
	flags.StringVar(&s.Queue, "queue", "", "队列名")
	flags.StringVar(&s.LogFile, "log", "", "日志文件路径")
	flags.BoolVar(&s.Dev, "dev", false, "开发模式日志")
	flags.StringVar(&s.EnvFile, "env", ".env", "环境变量文件")
	flags.Func("var", "绑定变量 key=value，可重复", func(v string) error {
		s.Vars = append(s.Vars, v)
		return nil
	})
	if err := flags.Parse(args); err != nil {
		return settings{}, err
	}
	if flags.NArg() > 0 {
		return settings{}, fmt.Errorf("多余的参数: %s", strings.Join(flags.Args(), " "))
	}

	explicit := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if err := loadEnvFile(s.EnvFile, explicit["env"]); err != nil {
		return settings{}, err
	}
	if !explicit["data"] {
		s.DataDir = getEnvOrDefault(envDataDir, "example_data")
	}
	if !explicit["redis"] {
		s.RedisAddr = getEnvOrDefault(envRedisAddr, "")
	}
	if !explicit["queue"] {
		s.Queue = getEnvOrDefault(envQueue, queue.DefaultName)
	}
	if !explicit["log"] {
		s.LogFile = getEnvOrDefault(envLogFile, "")
	}
	if !explicit["dev"] {
		dev, err := getEnvBool(envDev, false)
		if err != nil {
			return settings{}, err
		}
		s.Dev = dev
	}
	return s, nil
}

// loadEnvFile 加载 .env；默认文件不存在时忽略，显式指定的文件必须存在。
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("加载环境变量文件 %s 失败: %w", path, err)
}

func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvBool(key string, def bool) (bool, error) {
	v := getEnvOrDefault(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s 不是合法的布尔值: %q", key, v)
	}
	return b, nil
}
