package models

import "errors"

// 数据层与配置层的类型化错误。调用方通过 errors.Is 区分处理。
var (
	// ErrNoData 表示所有数据源都返回空结果
	ErrNoData = errors.New("no data available from any source")
	// ErrNetwork 表示重试耗尽后的网络失败
	ErrNetwork = errors.New("network failure after retries")
	// ErrParse 表示数据源返回了无法识别的响应
	ErrParse = errors.New("unrecognized response format")
	// ErrInsufficientHistory 表示K线数量不足以支撑所请求的指标窗口或缠论阶段
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInvalidConfig 表示配置项未知或越界，启动时立即失败
	ErrInvalidConfig = errors.New("invalid config")
)
