package logsvc

import (
	"log"

	"github.com/trezcool/kozi/core"
)

type stdLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*stdLogger)(nil)

// NewStdLogger wraps the standard library logger; Debug output is
// dropped unless the app runs in debug mode.
func NewStdLogger(std *log.Logger, conf *core.Config) core.Logger {
	return &stdLogger{std: std, debug: conf.Debug}
}

func (l stdLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + ": " + msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l stdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG", msg, args)
	}
}

func (l stdLogger) Info(msg string, args ...interface{}) {
	l.print("INFO", msg, args)
}

func (l stdLogger) Warn(msg string, args ...interface{}) {
	l.print("WARN", msg, args)
}

func (l stdLogger) Error(msg string, args ...interface{}) {
	l.print("ERROR", msg, args)
}

func (l stdLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
