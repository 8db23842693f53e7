package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New construye el logger de producción. Si file no está vacío, además de stdout
// se escribe a un archivo rotado con lumberjack.
func New(level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lvl),
	}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder,
			zapcore.AddSync(&lumberjack.Logger{
				Filename: file, MaxSize: 100, MaxAge: 28, Compress: true,
			}),
			lvl,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
