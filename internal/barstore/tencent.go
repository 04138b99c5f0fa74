package barstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chanlun-quant-go/internal/models"
)

// TencentSource 对接腾讯行情的日K接口（ifzq.gtimg.cn），作为新浪的后备数据源。
type TencentSource struct {
	client  *http.Client
	baseURL string
}

// NewTencentSource 创建腾讯数据源。baseURL 留空时使用线上地址。
func NewTencentSource(client *http.Client, baseURL string) *TencentSource {
	if baseURL == "" {
		baseURL = "https://web.ifzq.gtimg.cn"
	}
	return &TencentSource{client: client, baseURL: baseURL}
}

func (t *TencentSource) Name() string { return "tencent" }

// Fetch 拉取日线K线。腾讯接口只提供日线及以上粒度，分钟级请求返回空结果交给下一个数据源。
func (t *TencentSource) Fetch(ctx context.Context, req FetchRequest) ([]models.Bar, error) {
	if req.Interval.Minutes() > 0 {
		return nil, nil
	}

	kind := "day"
	switch req.Interval {
	case models.IntervalWeek:
		kind = "week"
	case models.IntervalMonth:
		kind = "month"
	}
	field := kind
	if req.Adjust == models.AdjustForward {
		field = "qfq" + kind
	} else if req.Adjust == models.AdjustBackward {
		field = "hfq" + kind
	}

	adjustArg := ""
	if req.Adjust == models.AdjustForward || req.Adjust == models.AdjustBackward {
		adjustArg = string(req.Adjust)
	}
	u := fmt.Sprintf(
		"%s/appstock/app/fqkline/get?param=%s,%s,,,%d,%s",
		t.baseURL, req.Symbol, kind, periodBars(req.Period, req.Interval), adjustArg,
	)

	body, err := doGet(ctx, t.client, u)
	if err != nil {
		return nil, err
	}

	// 响应形如 {"code":0,"data":{"<symbol>":{"qfqday":[[date,open,close,high,low,volume],...]}}}
	var payload struct {
		Code int                        `json:"code"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: tencent: %v", models.ErrParse, err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("%w: tencent: code=%d", models.ErrParse, payload.Code)
	}

	raw, ok := payload.Data[req.Symbol]
	if !ok {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: tencent: %v", models.ErrParse, err)
	}
	rowsRaw, ok := fields[field]
	if !ok {
		// 不复权时字段名没有前缀
		if rowsRaw, ok = fields[kind]; !ok {
			return nil, nil
		}
	}

	var rows [][]any
	if err := json.Unmarshal(rowsRaw, &rows); err != nil {
		return nil, fmt.Errorf("%w: tencent: %v", models.ErrParse, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: tencent: 行字段不足", models.ErrParse)
		}
		bar, err := parseTencentRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: tencent: %v", models.ErrParse, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// 腾讯的行顺序为 date, open, close, high, low, volume，元素既可能是字符串也可能是数字
func parseTencentRow(row []any) (models.Bar, error) {
	date, ok := row[0].(string)
	if !ok {
		return models.Bar{}, fmt.Errorf("日期字段类型 %T", row[0])
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return models.Bar{}, err
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := toFloat(row[i+1])
		if err != nil {
			return models.Bar{}, err
		}
		vals[i] = v
	}
	return models.Bar{
		Time: t, Open: vals[0], Close: vals[1], High: vals[2], Low: vals[3], Volume: vals[4],
	}, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("价格字段类型 %T", v)
	}
}
