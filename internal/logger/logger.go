// Package logger builds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options controls logger construction.
type Options struct {
	Level  string
	Format string
	App    string
	Output io.Writer
}

// New creates a logrus logger. Unknown levels fall back to info.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.App != "" {
		log.AddHook(appHook{app: opts.App})
	}
	return log
}

// Component returns an entry tagged with the component name, the structured
// replacement for "[Component]" message prefixes.
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	if log == nil {
		log = Discard()
	}
	return log.WithField("component", name)
}

// Discard returns a logger that drops everything. Useful for tests and optional deps.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type appHook struct {
	app string
}

func (h appHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h appHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["app"]; !ok {
		e.Data["app"] = h.app
	}
	return nil
}
