package barstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chanlun-quant-go/internal/logger"
	"chanlun-quant-go/internal/models"
)

// Store 是行情仓库：按优先级尝试多个数据源并落盘缓存。
// 同一个 Store 可被多个标的的回测串行复用；缓存写入是原子的文件替换。
type Store struct {
	cfg     models.StoreConfig
	sources []BarSource
	cache   CacheRepository
}

// NewStore 按配置构造行情仓库。数据源顺序即尝试优先级。
func NewStore(cfg models.StoreConfig) (*Store, error) {
	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: proxy_url: %v", models.ErrInvalidConfig, err)
	}

	var cache CacheRepository
	switch cfg.CacheBackend {
	case "badger":
		cache, err = NewBadgerCache(cfg.CacheDir)
	default:
		cache, err = NewFileCache(cfg.CacheDir)
	}
	if err != nil {
		return nil, err
	}

	return &Store{
		cfg: cfg,
		sources: []BarSource{
			NewSinaSource(client, ""),
			NewTencentSource(client, ""),
		},
		cache: cache,
	}, nil
}

// NewStoreWithSources 用显式的数据源与缓存构造仓库，测试时注入桩实现。
func NewStoreWithSources(cfg models.StoreConfig, cache CacheRepository, sources ...BarSource) *Store {
	return &Store{cfg: cfg, sources: sources, cache: cache}
}

// Close 释放缓存资源
func (s *Store) Close() error { return s.cache.Close() }

// Fetch 返回一个标的的K线序列。
// 缓存命中且未过期时直接返回缓存；否则按优先级尝试各数据源，
// 每个数据源内部按配置的次数重试并指数回退。全部失败时返回类型化错误。
// 周线月线统一从日线聚合而来，缓存里存的已经是聚合后的序列。
func (s *Store) Fetch(ctx context.Context, symbol, period string, interval models.Interval, adjust models.Adjust, useCache bool) (*models.BarSeries, error) {
	key := CacheKey{Symbol: symbol, Period: period, Interval: interval, Adjust: adjust}
	ttl := time.Duration(s.cfg.CacheTTLDays) * 24 * time.Hour

	if useCache {
		if bars, age, _ := s.cache.Load(key); len(bars) > 0 && age <= ttl {
			logger.S().Debugf("缓存命中: %s (age=%s)", key, age.Round(time.Second))
			return s.finish(symbol, interval, bars)
		}
	}

	fetchInterval := interval
	if interval == models.IntervalWeek || interval == models.IntervalMonth {
		fetchInterval = models.IntervalDay
	}

	var lastErr error
	for _, src := range s.sources {
		bars, err := s.fetchWithRetry(ctx, src, FetchRequest{
			Symbol: symbol, Period: period, Interval: fetchInterval, Adjust: adjust,
		})
		if err != nil {
			logger.S().Warnf("数据源 %s 失败: %v，尝试下一个", src.Name(), err)
			lastErr = err
			continue
		}
		if len(bars) == 0 {
			logger.S().Debugf("数据源 %s 无 %s 的数据", src.Name(), symbol)
			continue
		}

		series, err := s.finish(symbol, fetchInterval, bars)
		if err != nil {
			lastErr = err
			continue
		}
		if fetchInterval != interval {
			if series, err = Resample(series, interval); err != nil {
				return nil, fmt.Errorf("%s: %w", symbol, err)
			}
		}

		if err := s.cache.Save(key, series.Bars); err != nil {
			// 缓存写入失败不影响本次结果
			logger.S().Warnf("写入缓存失败: %v", err)
		}
		return series, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%s: %w", symbol, lastErr)
	}
	return nil, fmt.Errorf("%s: %w", symbol, models.ErrNoData)
}

// fetchWithRetry 对单个数据源做最多 retry_count 次尝试，间隔指数增长
func (s *Store) fetchWithRetry(ctx context.Context, src BarSource, req FetchRequest) ([]models.Bar, error) {
	attempts := s.cfg.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(s.cfg.RetryDelaySec) * time.Second

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		bars, err := src.Fetch(ctx, req)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		// 解析错误说明响应结构变了，重试没有意义
		if errors.Is(err, models.ErrParse) {
			return nil, err
		}
		logger.S().Debugf("数据源 %s 第 %d 次尝试失败: %v", src.Name(), attempt+1, err)
	}
	return nil, lastErr
}

// finish 对拉取结果做坏K线清洗并组装序列
func (s *Store) finish(symbol string, interval models.Interval, bars []models.Bar) (*models.BarSeries, error) {
	series := &models.BarSeries{Symbol: symbol, Interval: interval, Bars: bars}
	clean, dropped := series.Sanitize()
	if dropped > 0 {
		logger.S().Warnf("%s: 丢弃了 %d 根坏K线", symbol, dropped)
	}
	if clean.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrNoData)
	}
	return clean, nil
}
