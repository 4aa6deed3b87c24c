// Package logger builds the zap logger shared by the server, worker and CLI.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qs3c/metrics_go_server/config"
)

// 日志字段名
const (
	FieldCompanyID = "company_id"
	FieldUserID    = "user_id"
	FieldRunID     = "run_id"
	FieldSyncMode  = "sync_mode"
	FieldEvent     = "event"
)

// EventSecretDecryptFailed 凭证解密失败属于安全事件，单独标记便于告警
const EventSecretDecryptFailed = "security.secret_decrypt_failed"

// New 根据配置创建 logger
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

// Must 创建失败时 panic，供 main 使用
func Must(cfg config.LogConfig) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

func CompanyID(id int64) zap.Field { return zap.Int64(FieldCompanyID, id) }

func UserID(id int64) zap.Field { return zap.Int64(FieldUserID, id) }

func RunID(id string) zap.Field { return zap.String(FieldRunID, id) }

func SyncMode(mode string) zap.Field { return zap.String(FieldSyncMode, mode) }

func Event(name string) zap.Field { return zap.String(FieldEvent, name) }
