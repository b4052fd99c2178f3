package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例
var Log *zap.Logger

// Init 初始化 zap 日志
// debug 模式输出彩色控制台日志，生产模式输出 JSON
func Init(debug bool) {
	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder

	if debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	Log = zap.New(core, zap.AddCaller())
}

// Sync 刷新缓冲区，在程序退出前调用
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
