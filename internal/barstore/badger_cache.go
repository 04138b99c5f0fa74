package barstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"chanlun-quant-go/internal/models"

	"github.com/dgraph-io/badger/v3"
)

// badgerCache 是 CacheRepository 的BadgerDB实现，
// 值为 8 字节写入时间戳（Unix秒）加CSV编码的K线数据。
type badgerCache struct {
	db *badger.DB
}

// NewBadgerCache 打开指定目录下的BadgerDB缓存
func NewBadgerCache(dir string) (CacheRepository, error) {
	opts := badger.DefaultOptions(dir)
	// 关闭Badger自身的日志输出，错误仍会从操作中返回
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerCache{db: db}, nil
}

func (c *badgerCache) Load(key CacheKey) ([]models.Bar, time.Duration, error) {
	var bars []models.Bar
	var storedAt time.Time

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < 8 {
				return errors.New("缓存值过短")
			}
			storedAt = time.Unix(int64(binary.BigEndian.Uint64(val[:8])), 0)
			decoded, err := decodeBarsCSV(bytes.NewReader(val[8:]))
			if err != nil {
				return err
			}
			bars = decoded
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		// 损坏的缓存条目视为未命中
		return nil, 0, nil
	}
	return bars, time.Since(storedAt), nil
}

func (c *badgerCache) Save(key CacheKey, bars []models.Bar) error {
	var buf bytes.Buffer
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().Unix()))
	buf.Write(ts[:])
	if err := encodeBarsCSV(&buf, bars); err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key.String()), buf.Bytes())
	})
}

func (c *badgerCache) Close() error { return c.db.Close() }
