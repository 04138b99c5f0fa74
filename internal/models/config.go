package models

import "fmt"

// Config 汇总了所有组件的配置。各组件只接收自己对应的小节，不存在进程级单例。
type Config struct {
	Store    StoreConfig    `json:"store"`
	Equity   EquityConfig   `json:"equity"`
	Futures  FuturesConfig  `json:"futures"`
	Chan     ChanConfig     `json:"chan"`
	Strategy StrategyConfig `json:"strategy"`
	Log      LogConfig      `json:"log"`
}

// StoreConfig 是行情仓库的配置
type StoreConfig struct {
	CacheDir        string `json:"cache_dir"`        // 本地缓存目录
	CacheBackend    string `json:"cache_backend"`    // 缓存后端: "file" 或 "badger"
	CacheTTLDays    int    `json:"cache_ttl_days"`   // 缓存有效期（天）
	ProxyURL        string `json:"proxy_url"`        // 可选的HTTP代理
	RetryCount      int    `json:"retry_count"`      // 单个数据源的重试次数
	RetryDelaySec   int    `json:"retry_delay_s"`    // 重试间隔（秒），按指数回退
	RequestTimeoutS int    `json:"request_timeout_s"` // 单次请求超时（秒）
}

// EquityConfig 是股票回测引擎的配置
type EquityConfig struct {
	InitialCash       float64 `json:"initial_cash"`        // 初始资金
	CommissionRate    float64 `json:"commission_rate"`     // 手续费率（开平双边）
	AllowPartialShare bool    `json:"allow_partial_share"` // 是否允许碎股
}

// FuturesConfig 是期货回测引擎的配置
type FuturesConfig struct {
	InitialCapital   float64 `json:"initial_capital"`   // 初始权益
	CommissionRate   float64 `json:"commission_rate"`   // 手续费率
	SlippageAbsolute float64 `json:"slippage_absolute"` // 滑点，固定价格偏移（非百分比）
	StopLossPct      float64 `json:"stop_loss_pct"`     // 止损比例，0 表示不启用
	StopProfitPct    float64 `json:"stop_profit_pct"`   // 止盈比例，0 表示不启用
	LeverageFraction float64 `json:"leverage_fraction"` // 资金使用比例
	AllowShort       bool    `json:"allow_short"`       // 卖出信号是否允许反手开空
}

// ChanConfig 是缠论分解器的配置
type ChanConfig struct {
	MinBarsBetweenFractals int    `json:"min_bars_between_fractals"` // 分型间最小K线数
	MinStrokesForSegment   int    `json:"min_strokes_for_segment"`   // 构成线段的最少笔数
	KType                  string `json:"k_type"`                    // "day" 或 "minute"
}

// StrategyConfig 是各策略的扁平参数记录
type StrategyConfig struct {
	Name            string  `json:"name"`              // 策略名称
	BollWindow      int     `json:"boll_window"`       // 布林带窗口
	BollK           float64 `json:"boll_k"`            // 布林带宽度系数
	ExitK           float64 `json:"exit_k"`            // 卖出阈值: close >= exit_k * 中轨
	MaxHoldBars     int     `json:"max_hold_bars"`     // 最长持仓K线数
	MAShort         int     `json:"ma_short"`          // 短期均线窗口
	MALong          int     `json:"ma_long"`           // 长期均线窗口
	MinUptrendDays  int     `json:"min_uptrend_days"`  // 严格版: 买入前最少上升天数
	HigherHighRatio float64 `json:"higher_high_ratio"` // 严格版: 创新高K线占比下限
	MinInterval     int     `json:"min_interval"`      // 严格版: 两次买入的最小间隔
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// DefaultConfig 返回带默认值的配置
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			CacheDir:        "cache",
			CacheBackend:    "file",
			CacheTTLDays:    365,
			RetryCount:      5,
			RetryDelaySec:   5,
			RequestTimeoutS: 30,
		},
		Equity: EquityConfig{
			InitialCash:    100000,
			CommissionRate: 0.001,
		},
		Futures: FuturesConfig{
			InitialCapital:   100000,
			CommissionRate:   0.0001,
			SlippageAbsolute: 1.0,
			LeverageFraction: 1.0,
		},
		Chan: ChanConfig{
			MinBarsBetweenFractals: 4,
			MinStrokesForSegment:   3,
			KType:                  "day",
		},
		Strategy: StrategyConfig{
			Name:            "chan",
			BollWindow:      20,
			BollK:           2.0,
			ExitK:           2.5,
			MaxHoldBars:     120,
			MAShort:         5,
			MALong:          20,
			MinUptrendDays:  10,
			HigherHighRatio: 0.5,
			MinInterval:     10,
		},
		Log: LogConfig{Level: "info", Output: "console"},
	}
}

// Validate 在运行开始前做一次性校验，发现非法配置立即失败。
func (c *Config) Validate() error {
	if c.Store.CacheBackend != "file" && c.Store.CacheBackend != "badger" {
		return fmt.Errorf("%w: 未知的缓存后端 %q", ErrInvalidConfig, c.Store.CacheBackend)
	}
	if c.Store.CacheTTLDays < 0 || c.Store.RetryCount < 0 || c.Store.RetryDelaySec < 0 || c.Store.RequestTimeoutS <= 0 {
		return fmt.Errorf("%w: 行情仓库参数越界", ErrInvalidConfig)
	}
	if c.Equity.InitialCash <= 0 || c.Equity.CommissionRate < 0 {
		return fmt.Errorf("%w: 股票回测参数越界", ErrInvalidConfig)
	}
	if c.Futures.InitialCapital <= 0 || c.Futures.CommissionRate < 0 || c.Futures.SlippageAbsolute < 0 {
		return fmt.Errorf("%w: 期货回测参数越界", ErrInvalidConfig)
	}
	if c.Futures.LeverageFraction <= 0 || c.Futures.LeverageFraction > 1 {
		return fmt.Errorf("%w: leverage_fraction 必须位于 (0, 1]", ErrInvalidConfig)
	}
	if c.Futures.StopLossPct < 0 || c.Futures.StopProfitPct < 0 {
		return fmt.Errorf("%w: 止损/止盈比例不能为负", ErrInvalidConfig)
	}
	if c.Chan.MinBarsBetweenFractals < 1 || c.Chan.MinStrokesForSegment < 3 {
		return fmt.Errorf("%w: 缠论参数越界", ErrInvalidConfig)
	}
	if c.Chan.KType != "day" && c.Chan.KType != "minute" {
		return fmt.Errorf("%w: k_type 必须为 day 或 minute", ErrInvalidConfig)
	}
	if c.Strategy.BollWindow < 2 || c.Strategy.MAShort < 1 || c.Strategy.MALong <= c.Strategy.MAShort {
		return fmt.Errorf("%w: 策略均线窗口越界", ErrInvalidConfig)
	}
	return nil
}
