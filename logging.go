package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"golang.org/x/exp/slog"
)

type LogHandler struct {
	handler slog.Handler
	mu      *sync.Mutex
	out     io.Writer
}

func NewLogHandler(out io.Writer, opts *slog.HandlerOptions) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &LogHandler{
		out: out,
		handler: slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.AddSource,
		}),
		mu: &sync.Mutex{},
	}
}

func (self *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return self.handler.Enabled(ctx, level)
}

func (self *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{handler: self.handler.WithAttrs(attrs), out: self.out, mu: self.mu}
}

func (self *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{handler: self.handler.WithGroup(name), out: self.out, mu: self.mu}
}

func (self *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	tokens := []string{record.Time.Format("2006/01/02 15:04:05"), record.Level.String(), record.Message}
	if record.NumAttrs() != 0 {
		record.Attrs(func(attr slog.Attr) bool {
			tokens = append(tokens, attr.Value.String())
			return true
		})
	}
	line := strings.Join(tokens, " ") + "\n"

	self.mu.Lock()
	defer self.mu.Unlock()
	_, err := self.out.Write([]byte(line))
	return err
}
