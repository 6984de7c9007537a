package client

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	bytesWritten = metrics.NewCounter("respkit_client_bytes_written_total")
	bytesRead    = metrics.NewCounter("respkit_client_bytes_read_total")
)

// observe records the outcome and latency of one exchange.
func observe(mode Mode, keyword, outcome string, started time.Time) {
	metrics.GetOrCreateCounter(fmt.Sprintf(
		`respkit_client_exchanges_total{mode=%q,command=%q,outcome=%q}`,
		mode, keyword, outcome,
	)).Inc()

	metrics.GetOrCreateHistogram(fmt.Sprintf(
		`respkit_client_exchange_duration_seconds{mode=%q}`,
		mode,
	)).UpdateDuration(started)
}
