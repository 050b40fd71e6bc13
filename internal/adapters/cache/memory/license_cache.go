package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ogurasousui/business-license-api/internal/core/license"
)

type entry struct {
	license  *license.License
	storedAt time.Time
}

// LicenseCache はプロセス内の TTL 付きキャッシュです。Redis を利用しない構成とテストで使用します。
// 無効化は自プロセスにしか届かないため、複数インスタンス構成では使用しないでください。
type LicenseCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	tombstones map[string]time.Time
	ttl        time.Duration
	hold       time.Duration
	now        func() time.Time
}

var _ license.Cache = (*LicenseCache)(nil)

// NewLicenseCache は LicenseCache を生成します。ttl が 0 以下の場合は期限切れになりません。
// hold が正の場合、Delete したキーへの Set はその期間だけ無視されます。
func NewLicenseCache(ttl, hold time.Duration) *LicenseCache {
	return &LicenseCache{
		items:      make(map[string]entry),
		tombstones: make(map[string]time.Time),
		ttl:        ttl,
		hold:       hold,
		now:        time.Now,
	}
}

// Get はキーに対応する許可の複製を返します。
func (c *LicenseCache) Get(_ context.Context, key string) (*license.License, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.mu.Lock()
		if current, ok := c.items[key]; ok && current.storedAt.Equal(e.storedAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.license.Clone(), true
}

// Set は許可の複製を保存します。
func (c *LicenseCache) Set(_ context.Context, key string, l *license.License) {
	if l == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.tombstones[key]; ok {
		if now.Before(until) {
			return
		}
		delete(c.tombstones, key)
	}
	c.items[key] = entry{license: l.Clone(), storedAt: now}
}

// Delete は指定したキーを削除し、hold の間は再書き込みを拒否します。
func (c *LicenseCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, until := range c.tombstones {
		if !now.Before(until) {
			delete(c.tombstones, key)
		}
	}
	for _, key := range keys {
		delete(c.items, key)
		if c.hold > 0 {
			c.tombstones[key] = now.Add(c.hold)
		}
	}
}

// Len は保持しているエントリ数を返します。
func (c *LicenseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
