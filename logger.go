package autocrud

import "fmt"

// Logger is the logging surface used across the package. Adapters for
// zap and zerolog live in the logging package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var LoggerEnabled = false

type defaultLogger struct {
}

// DefaultLogger prints to stdout while LoggerEnabled is set.
func DefaultLogger() Logger {
	return &defaultLogger{}
}

func (d *defaultLogger) Debug(format string, args ...any) {
	if LoggerEnabled {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

func (d *defaultLogger) Info(format string, args ...any) {
	if LoggerEnabled {
		fmt.Printf("[INFO] "+format+"\n", args...)
	}
}

func (d *defaultLogger) Warn(format string, args ...any) {
	if LoggerEnabled {
		fmt.Printf("[WARN] "+format+"\n", args...)
	}
}

func (d *defaultLogger) Error(format string, args ...any) {
	if LoggerEnabled {
		if len(args) == 1 {
			if fields, ok := args[0].(map[string]any); ok {
				fmt.Printf("[ERROR] %s %+v\n", format, fields)
				return
			}
		}
		fmt.Printf("[ERROR] "+format+"\n", args...)
	}
}

func loggerOr(l Logger) Logger {
	if l == nil {
		return &defaultLogger{}
	}
	return l
}
