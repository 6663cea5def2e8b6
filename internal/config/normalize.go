// internal/config/normalize.go
package config

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	pm := &cfg.PowerMeter

	if pm.Source.Mode == "" {
		pm.Source.Mode = "serial"
	}
	if pm.Source.TimeoutMs == 0 {
		pm.Source.TimeoutMs = 1000
	}

	if pm.Serial.BaudRate == 0 {
		pm.Serial.BaudRate = 9600
	}
	if pm.Serial.DataBits == 0 {
		pm.Serial.DataBits = 8
	}
	if pm.Serial.Parity == "" {
		pm.Serial.Parity = "N"
	}
	if pm.Serial.StopBits == 0 {
		pm.Serial.StopBits = 1
	}

	if pm.Poll.IntervalMs == 0 {
		pm.Poll.IntervalMs = 5000
	}

	if pm.HTTP.APIPort == 0 {
		pm.HTTP.APIPort = 8080
	}
	if pm.HTTP.WebPort == 0 {
		pm.HTTP.WebPort = 8000
	}
	if pm.HTTP.WebDir == "" {
		pm.HTTP.WebDir = "web"
	}

	if pm.History.Enabled && pm.History.Path == "" {
		pm.History.Path = "powermeter.db"
	}
}
