package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// logTimeFormat prints wall-clock time with centiseconds, e.g. "14:32:01.45".
const logTimeFormat = "15:04:05.00"

// newLogger returns the CLI logger. Everything goes to w, so stdout stays
// free for documents written with "-o -".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

// raiseVerbosity lowers l's level to the configured one. A config file can
// make the CLI chattier but never quieter than --verbose asked for; unknown
// names are ignored since config validation already rejects them.
func raiseVerbosity(l *log.Logger, configured string) {
	level, err := log.ParseLevel(configured)
	if err != nil {
		return
	}
	if l.GetLevel() > level {
		l.SetLevel(level)
	}
}

// progress times one command and logs its outcome.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Relayout of 42 nodes (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
