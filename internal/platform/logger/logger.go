package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for mode ("production"/"prod" for JSON output, anything else
// for the console development encoder). LOG_LEVEL overrides the default debug level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		return build(cfg)
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())
	return build(cfg)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func build(cfg zap.Config) (*Logger, error) {
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

func levelFromEnv() zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return zap.DebugLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return zap.DebugLevel
	}
	return lvl
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

var (
	redactOnce       sync.Once
	redactionEnabled bool
	hashSalt         string
)

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 || !redactionOn() {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := strings.TrimSpace(strings.ToLower(toString(kv[i])))
		out = append(out, toString(kv[i]), sanitizeValue(key, kv[i+1]))
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	if key == "" {
		return val
	}
	if isRedactKey(key) {
		return "[REDACTED]"
	}
	if isHashKey(key) {
		return hashValue(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = sanitizeValue(strings.TrimSpace(strings.ToLower(k)), inner)
		}
		return out
	default:
		return val
	}
}

// Contact details of staff and witnesses end up in incident payloads.
func isRedactKey(key string) bool {
	for _, needle := range []string{"token", "authorization", "password", "secret", "cookie", "api_key", "dsn", "phone", "email"} {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func isHashKey(key string) bool {
	return strings.Contains(key, "employee_id") || strings.Contains(key, "session_id")
}

func hashValue(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if hashSalt != "" {
		_, _ = h.Write([]byte(hashSalt))
	}
	_, _ = h.Write([]byte(raw))
	sum := hex.EncodeToString(h.Sum(nil))
	return "hash:" + sum[:12]
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func redactionOn() bool {
	redactOnce.Do(func() {
		switch strings.TrimSpace(strings.ToLower(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			redactionEnabled = false
		default:
			redactionEnabled = true
		}
		hashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return redactionEnabled
}
