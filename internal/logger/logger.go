package logger

import (
	"os"
	"strings"

	"chanlun-quant-go/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var sugaredLogger *zap.SugaredLogger

// InitLogger 初始化zap日志记录器
func InitLogger(cfg models.LogConfig) {
	// 配置日志级别
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel) // 默认为Info级别
	}

	// 配置encoder，控制台输出启用颜色
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	var cores []zapcore.Core

	output := strings.ToLower(cfg.Output)
	if output == "file" || output == "both" {
		// 使用lumberjack进行日志切割
		lumberjackLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(lumberjackLogger), logLevel))
	}

	if output == "console" || output == "both" {
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), logLevel))
	}

	// 配置无效时退回控制台输出
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), logLevel))
	}

	core := zapcore.NewTee(cores...)
	sugaredLogger = zap.New(core, zap.AddCaller()).Sugar()
}

// S 返回全局的sugared logger实例
func S() *zap.SugaredLogger {
	if sugaredLogger == nil {
		// logger未初始化时提供一个应急logger
		logger, _ := zap.NewDevelopment()
		return logger.Sugar()
	}
	return sugaredLogger
}
