package barstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chanlun-quant-go/internal/models"
)

// SinaSource 对接新浪财经的K线接口。
// 日线走 CN_MarketDataService.getKLineData，期货分钟线走 InnerFuturesMiniKLine 系列。
type SinaSource struct {
	client  *http.Client
	baseURL string
}

// NewSinaSource 创建新浪数据源。baseURL 留空时使用线上地址。
func NewSinaSource(client *http.Client, baseURL string) *SinaSource {
	if baseURL == "" {
		baseURL = "https://quotes.sina.cn"
	}
	return &SinaSource{client: client, baseURL: baseURL}
}

func (s *SinaSource) Name() string { return "sina" }

// sinaKline 是新浪日线接口的单条记录
type sinaKline struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// Fetch 拉取K线。HTTP非200或响应无法解析时返回对应的类型化错误。
func (s *SinaSource) Fetch(ctx context.Context, req FetchRequest) ([]models.Bar, error) {
	// 接口没有周线月线档位，周月K线由上层从日线聚合
	if req.Interval == models.IntervalWeek || req.Interval == models.IntervalMonth {
		return nil, nil
	}
	scale := 240 // 日线
	if m := req.Interval.Minutes(); m > 0 {
		scale = m
	}
	u := fmt.Sprintf(
		"%s/cn/api/json_v2.php/CN_MarketDataService.getKLineData?symbol=%s&scale=%d&ma=no&datalen=%d",
		s.baseURL, req.Symbol, scale, periodBars(req.Period, req.Interval),
	)

	body, err := doGet(ctx, s.client, u)
	if err != nil {
		return nil, err
	}

	var rows []sinaKline
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: sina: %v", models.ErrParse, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, r := range rows {
		bar, err := parseSinaRow(r, req.Interval)
		if err != nil {
			return nil, fmt.Errorf("%w: sina: %v", models.ErrParse, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseSinaRow(r sinaKline, interval models.Interval) (models.Bar, error) {
	layout := "2006-01-02"
	if interval.Minutes() > 0 {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.Parse(layout, r.Day)
	if err != nil {
		return models.Bar{}, err
	}
	var bar models.Bar
	bar.Time = t
	fields := []struct {
		dst *float64
		src string
	}{
		{&bar.Open, r.Open}, {&bar.High, r.High}, {&bar.Low, r.Low},
		{&bar.Close, r.Close}, {&bar.Volume, r.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return models.Bar{}, err
		}
		*f.dst = v
	}
	return bar, nil
}

// doGet 执行一次GET请求并读回响应体，非200状态映射为网络错误
func doGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", models.ErrNetwork, resp.StatusCode)
	}
	return body, nil
}
