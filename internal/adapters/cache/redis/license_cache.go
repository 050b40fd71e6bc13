package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ogurasousui/business-license-api/internal/adapters/licensedto"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tombstone は無効化済みキーに置く値です。JSON として解釈されることはありません。
const tombstone = "\x00invalidated"

// setUnlessTombstone は無効化済みのキーを上書きせずに値を保存します。
var setUnlessTombstone = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[2] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// LicenseCache は Redis を利用した許可のキャッシュ層です。
// Redis の障害やデコード失敗はすべてキャッシュミスとして扱い、呼び出し元へエラーを返しません。
// Delete は hold の間だけ墓標を残し、他インスタンスが読み込み中の古いレコードで再設定することを防ぎます。
type LicenseCache struct {
	client    goredis.Cmdable
	ttl       time.Duration
	opTimeout time.Duration
	hold      time.Duration
	logger    *zap.Logger
}

var _ license.Cache = (*LicenseCache)(nil)

// NewLicenseCache は LicenseCache を生成します。
func NewLicenseCache(client goredis.Cmdable, ttl, opTimeout, hold time.Duration, logger *zap.Logger) *LicenseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LicenseCache{
		client:    client,
		ttl:       ttl,
		opTimeout: opTimeout,
		hold:      hold,
		logger:    logger.Named("license_cache"),
	}
}

// Get はキーに対応する許可を返します。
func (c *LicenseCache) Get(ctx context.Context, key string) (*license.License, bool) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if string(b) == tombstone {
		return nil, false
	}

	var rec licensedto.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		c.logger.Warn("cache entry could not be decoded", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return rec.ToLicense(), true
}

// Set は許可を TTL 付きで保存します。
func (c *LicenseCache) Set(ctx context.Context, key string, l *license.License) {
	if l == nil {
		return
	}

	b, err := json.Marshal(licensedto.FromLicense(l))
	if err != nil {
		c.logger.Warn("cache entry could not be encoded", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	err = setUnlessTombstone.Run(ctx, c.client, []string{key}, b, tombstone, c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete は指定したキーを無効化します。hold が 0 の場合は単に削除します。
func (c *LicenseCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var err error
	if c.hold > 0 {
		_, err = c.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
			for _, key := range keys {
				pipe.Set(ctx, key, tombstone, c.hold)
			}
			return nil
		})
	} else {
		err = c.client.Del(ctx, keys...).Err()
	}
	if err != nil {
		c.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// withTimeout は呼び出し元のキャンセルを切り離し、op_timeout を上限とするコンテキストを返します。
func (c *LicenseCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.opTimeout <= 0 {
		return base, func() {}
	}
	return context.WithTimeout(base, c.opTimeout)
}
