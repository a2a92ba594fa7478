package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// Store 带默认过期时间的进程内缓存
type Store struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewStore ttl <= 0 时缓存关闭（Get 永远未命中）
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		return &Store{}
	}
	// 清理间隔取 2 倍过期时间
	return &Store{c: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Get 获取缓存值
func (s *Store) Get(key string) (interface{}, bool) {
	if s.c == nil {
		return nil, false
	}
	return s.c.Get(key)
}

// Set 按默认过期时间写入
func (s *Store) Set(key string, value interface{}) {
	if s.c == nil {
		return
	}
	s.c.Set(key, value, cache.DefaultExpiration)
}

// Flush 清空所有缓存
func (s *Store) Flush() {
	if s.c != nil {
		s.c.Flush()
	}
}

// ItemCount 当前条目数
func (s *Store) ItemCount() int {
	if s.c == nil {
		return 0
	}
	return s.c.ItemCount()
}

// cacheItem 包装实际的数据，增加过期时间
type cacheItem[T any] struct {
	value     T
	expiredAt time.Time
}

// TTLCache 容量有限的 LRU 缓存，条目带过期时间
type TTLCache[T any] struct {
	storage *lru.Cache[string, cacheItem[T]]
	ttl     time.Duration
}

// NewTTLCache size 是最大条数，ttl 是数据有效期
func NewTTLCache[T any](size int, ttl time.Duration) *TTLCache[T] {
	if size <= 0 {
		size = 1
	}
	// lru.New 只在 size <= 0 时出错
	c, _ := lru.New[string, cacheItem[T]](size)
	return &TTLCache[T]{storage: c, ttl: ttl}
}

// Set 写入或覆盖
func (c *TTLCache[T]) Set(key string, value T) {
	c.storage.Add(key, cacheItem[T]{value: value, expiredAt: time.Now().Add(c.ttl)})
}

// Get 读取，过期条目会被删除
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(item.expiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.value, true
}

// Purge 清空
func (c *TTLCache[T]) Purge() {
	c.storage.Purge()
}

// Len 当前条目数（含未清理的过期条目）
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}
