package service

import (
	"context"
	"coursegen_backend/internal/model"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheKey 生成请求的确定性指纹。
// 键形如 course:<requesterId>:<sha256>，主题大小写与首尾空白不影响结果。
func CacheKey(req model.GenerationRequest) string {
	payload := fmt.Sprintf("%s|%s|%d|%t|%t",
		strings.ToLower(strings.TrimSpace(req.Topic)),
		canonicalDifficulty(req.Difficulty),
		req.ModuleCount,
		req.IncludeQuiz,
		req.IncludeVideos,
	)
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("course:%s:%s", req.RequesterID, hex.EncodeToString(sum[:]))
}

// CourseCache 课程级缓存。Get 未命中返回 (nil, false, nil)。
type CourseCache interface {
	Get(ctx context.Context, key string) (*model.Course, bool, error)
	Set(ctx context.Context, key string, course *model.Course, ttl time.Duration) error
}

type RedisCourseCache struct {
	rdb *redis.Client
}

func NewRedisCourseCache(rdb *redis.Client) *RedisCourseCache {
	return &RedisCourseCache{rdb: rdb}
}

func (c *RedisCourseCache) Get(ctx context.Context, key string) (*model.Course, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var course model.Course
	if err := json.Unmarshal(data, &course); err != nil {
		// 损坏的缓存条目按未命中处理
		return nil, false, err
	}
	return &course, true, nil
}

func (c *RedisCourseCache) Set(ctx context.Context, key string, course *model.Course, ttl time.Duration) error {
	data, err := json.Marshal(course)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// MemoryCourseCache 进程内实现，用于测试以及 Redis 不可用时的降级
type MemoryCourseCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data     []byte
	expireAt time.Time
}

func NewMemoryCourseCache() *MemoryCourseCache {
	return &MemoryCourseCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCourseCache) Get(ctx context.Context, key string) (*model.Course, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expireAt) {
		return nil, false, nil
	}

	var course model.Course
	if err := json.Unmarshal(entry.data, &course); err != nil {
		return nil, false, err
	}
	return &course, true, nil
}

func (c *MemoryCourseCache) Set(ctx context.Context, key string, course *model.Course, ttl time.Duration) error {
	data, err := json.Marshal(course)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expireAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
