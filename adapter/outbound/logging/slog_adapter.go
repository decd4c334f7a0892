package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/model"
)

type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// represents a single log entry to be processed asynchronously
type LogMessage struct {
	Level LogLevel
	Msg   string
	Args  []any
	Time  time.Time
}

// implements the Logger interface using Go's structured logging (slog)
// with asynchronous processing to avoid blocking hot paths
type SlogAdapter struct {
	logger    *slog.Logger
	logChan   chan LogMessage
	ctx       context.Context
	cancel    context.CancelFunc
	slogLevel *slog.LevelVar
	done      chan struct{}
}

func NewSlogAdapter(cfg *config.Config) model.Logger {
	ctx, cancel := context.WithCancel(context.Background())

	// LevelVar allows dynamic level changes after a config reload
	levelVar := &slog.LevelVar{}
	levelVar.Set(parseSlogLevel(cfg.Logging.Level))

	handlerOpts := &slog.HandlerOptions{
		Level: levelVar,
	}

	channelSize := cfg.Logging.ChannelSize
	if channelSize <= 0 {
		channelSize = 1000
	}

	adapter := &SlogAdapter{
		logger:    slog.New(slog.NewJSONHandler(logOutput(cfg), handlerOpts)),
		logChan:   make(chan LogMessage, channelSize),
		ctx:       ctx,
		cancel:    cancel,
		slogLevel: levelVar,
		done:      make(chan struct{}),
	}

	go adapter.processLogs()

	return adapter
}

// logOutput selects the log destination. File output rotates via lumberjack.
func logOutput(cfg *config.Config) io.Writer {
	if strings.ToLower(cfg.Logging.Output) != "file" {
		return os.Stdout
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logging.Dir, cfg.Logging.FileName),
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
	}
}

// UpdateLevel changes the slog level dynamically. Wired as a reload
// callback so a changed LOG_LEVEL takes effect without restart.
func (s *SlogAdapter) UpdateLevel(logLvl string) {
	s.slogLevel.Set(parseSlogLevel(logLvl))
	s.Info("Logger level updated dynamically", "new_level", strings.ToUpper(logLvl))
}

// handles messages asynchronously
func (s *SlogAdapter) processLogs() {
	defer close(s.done)

	for {
		select {
		case msg := <-s.logChan:
			s.writeLog(msg)
		case <-s.ctx.Done():
			for len(s.logChan) > 0 {
				msg := <-s.logChan
				s.writeLog(msg)
			}
			return
		}
	}
}

// converts the five-level configuration scheme to slog.Level.
// CRITICAL collapses into slog's error level.
func parseSlogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// performs the logging operation
func (s *SlogAdapter) writeLog(msg LogMessage) {
	switch msg.Level {
	case LevelError:
		s.logger.Error(msg.Msg, msg.Args...)
	case LevelWarn:
		s.logger.Warn(msg.Msg, msg.Args...)
	case LevelInfo:
		s.logger.Info(msg.Msg, msg.Args...)
	case LevelDebug:
		s.logger.Debug(msg.Msg, msg.Args...)
	}
}

func (s *SlogAdapter) sendLog(level LogLevel, msg string, args ...any) {
	select {
	case s.logChan <- LogMessage{
		Level: level,
		Msg:   msg,
		Args:  args,
		Time:  time.Now(),
	}:
	default:
		// chan full, drop
	}
}

func (s *SlogAdapter) shouldLog(level LogLevel) bool {
	current := s.slogLevel.Level()

	switch level {
	case LevelError:
		return true
	case LevelWarn:
		return current <= slog.LevelWarn
	case LevelInfo:
		return current <= slog.LevelInfo
	case LevelDebug:
		return current <= slog.LevelDebug
	}
	return false
}

func (s *SlogAdapter) Error(msg string, args ...any) {
	if !s.shouldLog(LevelError) {
		return
	}
	s.sendLog(LevelError, msg, args...)
}

func (s *SlogAdapter) Warn(msg string, args ...any) {
	if !s.shouldLog(LevelWarn) {
		return
	}
	s.sendLog(LevelWarn, msg, args...)
}

func (s *SlogAdapter) Info(msg string, args ...any) {
	if !s.shouldLog(LevelInfo) {
		return
	}
	s.sendLog(LevelInfo, msg, args...)
}

func (s *SlogAdapter) Debug(msg string, args ...any) {
	if !s.shouldLog(LevelDebug) {
		return
	}
	s.sendLog(LevelDebug, msg, args...)
}

// Shutdown stops the processing goroutine after draining buffered entries.
func (s *SlogAdapter) Shutdown() {
	s.cancel()
	<-s.done
}
