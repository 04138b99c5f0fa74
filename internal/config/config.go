package config

import (
	"encoding/json"
	"fmt"
	"os"

	"chanlun-quant-go/internal/models"
)

// LoadConfig 从指定路径加载JSON配置文件。文件中省略的字段保持默认值，
// 加载完成后立即校验，非法配置直接返回错误。
func LoadConfig(path string) (*models.Config, error) {
	cfg := models.DefaultConfig()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
