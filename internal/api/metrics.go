// internal/api/metrics.go
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/poller"
)

const metricsNamespace = "powermeter"

// Metrics publishes the latest poll results for scraping.
type Metrics struct {
	registry *prometheus.Registry

	powerKW      prometheus.Gauge
	energyKWh    prometheus.Gauge
	voltageLL    prometheus.Gauge
	voltageLN    prometheus.Gauge
	currentAvg   prometheus.Gauge
	frequencyHz  prometheus.Gauge
	powerFactor  prometheus.Gauge
	health       prometheus.Gauge
	pollErrors   prometheus.Counter
	pollDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		registry:    reg,
		powerKW:     gauge("power_kw", "System power from the last successful poll."),
		energyKWh:   gauge("energy_kwh", "Lifetime energy register (resets with the meter)."),
		voltageLL:   gauge("voltage_ll_volts", "Average line-to-line voltage."),
		voltageLN:   gauge("voltage_ln_volts", "Average line-to-neutral voltage."),
		currentAvg:  gauge("current_amps", "Average phase current."),
		frequencyHz: gauge("frequency_hz", "Line frequency."),
		powerFactor: gauge("power_factor", "Apparent power factor."),
		health:      gauge("health", "Connection health code (0 unknown, 1 ok, 2 error, 3 stale)."),
		pollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "poll_errors_total",
			Help:      "Poll cycles that failed.",
		}),
		pollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Wall time of one poll cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObservePoll folds one poll result into the gauges.
func (m *Metrics) ObservePoll(res poller.PollResult) {
	m.pollDuration.Observe(res.Duration.Seconds())

	if res.Err != nil {
		m.pollErrors.Inc()
		return
	}
	if res.Reading == nil {
		return
	}

	r := res.Reading
	m.powerKW.Set(r.System.PowerKW)
	m.energyKWh.Set(r.System.EnergyKWh)
	m.voltageLL.Set(r.System.VoltageLLAvg)
	m.voltageLN.Set(r.System.VoltageLNAvg)
	m.currentAvg.Set(r.System.CurrentAvg)
	m.frequencyHz.Set(r.Frequency)
	m.powerFactor.Set(r.System.ApparentPF)
}

// SetHealth mirrors the tracker's current health code.
func (m *Metrics) SetHealth(code uint16) {
	m.health.Set(float64(code))
}
