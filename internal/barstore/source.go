package barstore

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"chanlun-quant-go/internal/models"
)

// FetchRequest 描述一次远端K线请求
type FetchRequest struct {
	Symbol   string
	Period   string // 请求跨度，如 "1y" / "5y"，由各数据源自行换算
	Interval models.Interval
	Adjust   models.Adjust
}

// BarSource 统一不同行情数据源的拉取行为。
// 返回空切片且无错误表示该数据源没有此标的的数据。
type BarSource interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) ([]models.Bar, error)
}

// newHTTPClient 构造所有数据源共用的HTTP客户端，统一应用代理和超时
func newHTTPClient(cfg models.StoreConfig) (*http.Client, error) {
	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Timeout:   time.Duration(cfg.RequestTimeoutS) * time.Second,
		Transport: transport,
	}, nil
}

// periodBars 把请求跨度换算为大致的K线根数，供按条数分页的接口使用
func periodBars(period string, interval models.Interval) int {
	years := 1
	switch period {
	case "3m":
		years = 0
	case "1y", "":
		years = 1
	case "3y":
		years = 3
	case "5y":
		years = 5
	case "10y":
		years = 10
	}

	switch interval {
	case models.IntervalDay:
		if years == 0 {
			return 63
		}
		return years * 250
	case models.IntervalWeek:
		return years * 52
	case models.IntervalMonth:
		return years * 12
	default:
		// 分钟级接口通常只保留最近若干根
		return 1024
	}
}
