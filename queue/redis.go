// Package queue 把清单中的任务逐个推送到 Redis 列表，供外部渲染 worker 消费。
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ByLCY/textforge/registry"
)

// DefaultName 是默认的队列 key。
const DefaultName = "textforge:jobs"

// Envelope 是队列中的一条消息。Job 保留清单中的 JSON 原文，由 worker 自行解码。
type Envelope struct {
	RunID   string          `json:"run_id"`
	Index   int             `json:"index"`
	Total   int             `json:"total"`
	Name    string          `json:"name"`
	SaveDir string          `json:"save_dir"`
	Job     json.RawMessage `json:"job"`
}

// Envelopes 按清单顺序生成消息。
func Envelopes(m registry.Manifest) ([]Envelope, error) {
	out := make([]Envelope, 0, len(m.Jobs))
	for i, job := range m.Jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("序列化任务 %s 失败: %w", job.Name, err)
		}
		out = append(out, Envelope{
			RunID:   m.RunID,
			Index:   i,
			Total:   len(m.Jobs),
			Name:    job.Name,
			SaveDir: job.SaveDir,
			Job:     data,
		})
	}
	return out, nil
}

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	if queueName == "" {
		queueName = DefaultName
	}
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Name 返回队列 key。
func (q *RedisQueue) Name() string { return q.queueName }

// Push 在一个事务里按顺序写入全部任务（LPUSH），与 Pop 的 BRPOP 组成先进先出。
func (q *RedisQueue) Push(ctx context.Context, m registry.Manifest) (int, error) {
	envs, err := Envelopes(m)
	if err != nil {
		return 0, err
	}
	if len(envs) == 0 {
		return 0, nil
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, env := range envs {
			data, err := json.Marshal(env)
			if err != nil {
				return err
			}
			pipe.LPush(ctx, q.queueName, data)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("推送任务到 %s 失败: %w", q.queueName, err)
	}
	return len(envs), nil
}

// Pop 阻塞直到取到一条消息；timeout 为 0 时一直等待。超时返回 redis.Nil。
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (Envelope, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		return Envelope{}, err
	}
	if len(res) < 2 {
		return Envelope{}, redis.Nil
	}
	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return Envelope{}, fmt.Errorf("解析队列消息失败: %w", err)
	}
	return env, nil
}

// Len 返回队列中尚未消费的消息数。
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueName).Result()
}

// IsEmpty 判断 Pop 的错误是否只是超时。
func IsEmpty(err error) bool { return errors.Is(err, redis.Nil) }
