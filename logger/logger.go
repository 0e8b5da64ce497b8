package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Log is a no-op until InitLogger runs, so packages can log before the
	// configuration is known.
	Log       = zap.NewNop().Sugar()
	ZapLogger = zap.NewNop() // Expose the raw zap Logger
)

// InitLogger points Log at path, appending console-encoded lines at level
// and above.
func InitLogger(path, level string) error {
	// Configure the encoder
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:          "T", // Keep time key brief
		LevelKey:         "L",
		NameKey:          "N",
		CallerKey:        "",              // Disable caller key
		FunctionKey:      zapcore.OmitKey, // Disable function key
		MessageKey:       "M",
		StacktraceKey:    "S",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,                        // INFO, WARN, etc.
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"), // Simpler time format
		EncodeDuration:   zapcore.SecondsDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: "  ",
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("can't open log file: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(logFile),
		lvl,
	)

	ZapLogger = zap.New(core)
	Log = ZapLogger.Sugar()
	Log.Infow("Logger initialized", "file", path, "level", lvl.String())
	return nil
}

func Sync() {
	if ZapLogger != nil {
		_ = ZapLogger.Sync() // flushes buffer, if any
	}
}
