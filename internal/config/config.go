// internal/config/config.go
package config

type Config struct {
	PowerMeter PowerMeterConfig `yaml:"powermeter"`
}

type PowerMeterConfig struct {
	Source  SourceConfig  `yaml:"source"`
	Serial  SerialConfig  `yaml:"serial"`
	Poll    PollConfig    `yaml:"poll"`
	Scaling ScalingConfig `yaml:"scaling"`
	HTTP    HTTPConfig    `yaml:"http"`
	History HistoryConfig `yaml:"history"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Mode          string `yaml:"mode"`     // "serial" or "tcp"
	Endpoint      string `yaml:"endpoint"` // tcp mode only
	DeviceAddress uint8  `yaml:"device_address"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	Retries       int    `yaml:"retries"`
}

// ---- SERIAL LINE ----

type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // N, E, O
	StopBits int    `yaml:"stop_bits"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int  `yaml:"interval_ms"`
	Detailed   bool `yaml:"detailed"`
}

// ---- SCALING ----

type ScalingConfig struct {
	DefaultScalar int                `yaml:"default_scalar"`
	Override      bool               `yaml:"override"`
	Factors       map[string]float64 `yaml:"factors"` // power/pf/current/voltage/frequency
}

// ---- HTTP ----

type HTTPConfig struct {
	APIPort int    `yaml:"api_port"`
	WebPort int    `yaml:"web_port"`
	WebDir  string `yaml:"web_dir"`
}

// ---- HISTORY ----

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
