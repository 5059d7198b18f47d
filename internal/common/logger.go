package common

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the owning service ID.
type ServiceLogger struct {
	logger zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{
		logger: log.With().Str("service", svc.ID()).Logger(),
	}
}

func (l *ServiceLogger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *ServiceLogger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *ServiceLogger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *ServiceLogger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// SetupLogger configures the global zerolog logger. Dev gets a console
// writer, everything else keeps JSON lines.
func SetupLogger(level string, env string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
