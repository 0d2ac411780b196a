// Package cache 缓存确定性的求解结果
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/vrpsolver/vrpsolver/pkg/model"
)

// ResultCache 求解结果缓存接口
type ResultCache interface {
	// Get 读取缓存，未命中时返回 nil, nil
	Get(ctx context.Context, key string) (*model.SolutionResult, error)
	// Set 写入缓存
	Set(ctx context.Context, key string, res *model.SolutionResult) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
}

// Key 计算问题摘要：规范 JSON 加问题类型的 SHA-256
//
// 已知最优值只用于对比，不参与摘要。
func Key(p *model.RoutingProblem, v model.Variant) (string, error) {
	canonical := *p
	canonical.BestKnown = nil

	data, err := json.Marshal(&canonical)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(v))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ResultKey 在问题摘要上叠加求解参数，参数不同的结果互不复用
//
// settings 按 JSON 编码，为 nil 时等同于只看问题摘要。
func ResultKey(problemHash string, settings interface{}) (string, error) {
	if settings == nil {
		return problemHash, nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(problemHash))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Cacheable 只有与墙钟无关的结果才可复用
func Cacheable(res *model.SolutionResult) bool {
	if res == nil {
		return false
	}
	if !res.Feasible {
		return true
	}
	return res.Statistics != nil && res.Statistics.StopReason.Deterministic()
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache 进程内缓存，保存序列化副本避免调用方修改共享结果
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 创建进程内缓存，ttl <= 0 表示不过期
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get 读取缓存
func (c *MemoryCache) Get(_ context.Context, key string) (*model.SolutionResult, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return decode(entry.data)
}

// Set 写入缓存
func (c *MemoryCache) Set(_ context.Context, key string, res *model.SolutionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len 返回缓存条目数
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func decode(data []byte) (*model.SolutionResult, error) {
	var res model.SolutionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
