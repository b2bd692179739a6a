package logger

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Progress logs iteration progress at most once per interval, plus the
// first call.
type Progress struct {
	log *slog.Logger
	s   rate.Sometimes
}

func NewProgress(l *slog.Logger, every time.Duration) *Progress {
	return &Progress{log: l, s: rate.Sometimes{First: 1, Interval: every}}
}

func (p *Progress) Log(msg string, args ...any) {
	p.s.Do(func() { p.log.Info(msg, args...) })
}
