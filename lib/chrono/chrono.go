package chrono

import (
	"fmt"
	"log/slog"

	"duesoon-backend/lib/timezone"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface anything depending on scheduled work should use.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron implements CronAPI with `github.com/robfig/cron/v3`,
// pinned to the same location as due-date math.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron() StandardCron {
	cronner := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithLocation(timezone.Location),
	)
	cronner.Start()

	return StandardCron{
		cron: cronner,
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

func (s StandardCron) Stop() {
	s.cron.Stop()
}

type cronLogger struct{}

func (cronLogger) kvPairs(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1])
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(fmt.Sprintf("cron: %s", msg), l.kvPairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"err", err}, l.kvPairs(keysAndValues)...)
	slog.Error(fmt.Sprintf("cron: %s", msg), args...)
}
