package mission

import (
	"log/slog"
	"time"
)

// countdown logs T-minus once per second before ignition.
func countdown(logger *slog.Logger, seconds int, sleep func(time.Duration)) {
	for i := seconds; i > 0; i-- {
		logger.Info("countdown", "t_minus", i)
		sleep(time.Second)
	}
	logger.Info("ignition")
}
