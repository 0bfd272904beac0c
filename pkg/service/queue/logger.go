package queue

import (
	"fmt"
	"os"

	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// asynqLogger routes asynq's internal logging through slog
type asynqLogger struct{}

func newLogger() asynqLogger { return asynqLogger{} }

func (asynqLogger) Debug(args ...any) { logging.Default().Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logging.Default().Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logging.Default().Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logging.Default().Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) {
	logging.Default().Error(fmt.Sprint(args...))
	os.Exit(1)
}
