package barstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"chanlun-quant-go/internal/models"

	"github.com/jxskiss/base62"
)

// CacheKey 唯一标识一份缓存的K线数据
type CacheKey struct {
	Symbol   string
	Period   string
	Interval models.Interval
	Adjust   models.Adjust
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s_%s_%s_%s", k.Symbol, k.Period, k.Interval, k.Adjust)
}

// CacheRepository 抽象了本地缓存的存取。
// Load 未命中（含文件损坏）时返回 (nil, 0, nil)，由调用方决定是否重新拉取。
type CacheRepository interface {
	Load(key CacheKey) (bars []models.Bar, age time.Duration, err error)
	Save(key CacheKey, bars []models.Bar) error
	Close() error
}

// fileCache 把每个键的K线存为缓存目录下的一个CSV文件，
// 文件名经base62编码以消除符号中的特殊字符，新鲜度由文件mtime决定。
type fileCache struct {
	dir string
}

// NewFileCache 创建文件缓存，目录不存在时自动建立
func NewFileCache(dir string) (CacheRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &fileCache{dir: dir}, nil
}

func (c *fileCache) path(key CacheKey) string {
	name := base62.EncodeToString([]byte(key.String()))
	return filepath.Join(c.dir, name+".csv")
}

func (c *fileCache) Load(key CacheKey) ([]models.Bar, time.Duration, error) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, nil // 未命中
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil
	}
	defer f.Close()

	bars, err := decodeBarsCSV(f)
	if err != nil {
		// 损坏的缓存文件视为未命中
		return nil, 0, nil
	}
	return bars, time.Since(info.ModTime()), nil
}

// Save 先写入临时文件再重命名，保证并发读取方永远看不到半成品
func (c *fileCache) Save(key CacheKey, bars []models.Bar) error {
	tmp, err := os.CreateTemp(c.dir, "cache-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := encodeBarsCSV(tmp, bars); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, c.path(key))
}

func (c *fileCache) Close() error { return nil }

// CSV 布局: date,open,high,low,close,volume，首行为表头
func encodeBarsCSV(out io.Writer, bars []models.Bar) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			b.Time.Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func decodeBarsCSV(in io.Reader) ([]models.Bar, error) {
	records, err := csv.NewReader(in).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("缓存文件为空")
	}

	bars := make([]models.Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 6 {
			return nil, fmt.Errorf("缓存行字段数 %d", len(rec))
		}
		t, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, err
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		bars = append(bars, models.Bar{
			Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return bars, nil
}
