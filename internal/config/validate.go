// internal/config/validate.go
package config

import (
	"fmt"
)

var validBaudRates = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true,
	19200: true, 38400: true, 57600: true, 115200: true,
}

var validFactorKeys = map[string]bool{
	"power": true, "pf": true, "current": true, "voltage": true, "frequency": true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	pm := &cfg.PowerMeter

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	switch pm.Source.Mode {
	case "", "serial":
		if pm.Serial.Port == "" {
			return fmt.Errorf("source: serial mode requires serial.port")
		}
	case "tcp":
		if pm.Source.Endpoint == "" {
			return fmt.Errorf("source: tcp mode requires source.endpoint")
		}
	default:
		return fmt.Errorf("source: mode must be \"serial\" or \"tcp\", got %q", pm.Source.Mode)
	}

	// RTU slave addresses; 0 is broadcast and never answers.
	if pm.Source.DeviceAddress < 1 || pm.Source.DeviceAddress > 247 {
		return fmt.Errorf("source: device_address %d out of range 1-247", pm.Source.DeviceAddress)
	}

	if pm.Source.TimeoutMs < 0 {
		return fmt.Errorf("source: timeout_ms must not be negative")
	}
	if pm.Source.Retries < 0 {
		return fmt.Errorf("source: retries must not be negative")
	}

	// ------------------------------------------------------------
	// SERIAL LINE
	// ------------------------------------------------------------

	if pm.Serial.BaudRate != 0 && !validBaudRates[pm.Serial.BaudRate] {
		return fmt.Errorf("serial: unsupported baud_rate %d", pm.Serial.BaudRate)
	}

	switch pm.Serial.DataBits {
	case 0, 5, 6, 7, 8:
	default:
		return fmt.Errorf("serial: data_bits must be 5-8, got %d", pm.Serial.DataBits)
	}

	switch pm.Serial.Parity {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("serial: parity must be N, E or O, got %q", pm.Serial.Parity)
	}

	switch pm.Serial.StopBits {
	case 0, 1, 2:
	default:
		return fmt.Errorf("serial: stop_bits must be 1 or 2, got %d", pm.Serial.StopBits)
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if pm.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll: interval_ms must not be negative")
	}

	// ------------------------------------------------------------
	// SCALING
	// ------------------------------------------------------------

	if pm.Scaling.DefaultScalar < 0 || pm.Scaling.DefaultScalar > 15 {
		return fmt.Errorf("scaling: default_scalar %d out of range 0-15", pm.Scaling.DefaultScalar)
	}

	for k := range pm.Scaling.Factors {
		if !validFactorKeys[k] {
			return fmt.Errorf("scaling: unknown factor key %q", k)
		}
	}

	if pm.Scaling.Override && len(pm.Scaling.Factors) == 0 {
		return fmt.Errorf("scaling: override is set but no factors are defined")
	}

	// ------------------------------------------------------------
	// HTTP
	// ------------------------------------------------------------

	if pm.HTTP.APIPort < 0 || pm.HTTP.APIPort > 65535 {
		return fmt.Errorf("http: api_port %d out of range", pm.HTTP.APIPort)
	}
	if pm.HTTP.WebPort < 0 || pm.HTTP.WebPort > 65535 {
		return fmt.Errorf("http: web_port %d out of range", pm.HTTP.WebPort)
	}
	if pm.HTTP.APIPort != 0 && pm.HTTP.APIPort == pm.HTTP.WebPort {
		return fmt.Errorf("http: api_port and web_port collide on %d", pm.HTTP.APIPort)
	}

	return nil
}
