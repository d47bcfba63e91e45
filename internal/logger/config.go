// internal/logger/config.go
package logger

type Config struct {
	LogFile    string
	MaxSize    int  // мегабайты
	MaxAge     int  // дни
	MaxBackups int  // количество файлов
	Compress   bool // сжимать ротированные файлы
	Debug      bool

	// Console writes human-readable entries to stdout. The TUI turns it off.
	Console bool
	// Buffer, when set, receives every entry for the in-app log pane.
	Buffer *LogBuffer
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "burn-portal.log",
		MaxSize:    50,
		MaxAge:     14,
		MaxBackups: 3,
		Compress:   true,
		Console:    true,
	}
}
