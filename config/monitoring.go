package config

// MonitoringConfig defines settings for operational monitoring.
type MonitoringConfig struct {
	// PromAddr is the listen address of the /metrics endpoint. Empty
	// disables the server.
	PromAddr string `json:"prom_addr"`
}
