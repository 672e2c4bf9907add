package config

import "time"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Width:  1280,
			Height: 720,
		},
		Ingress: IngressConfig{
			Address: "0.0.0.0:1337",
		},
		Gateway: GatewayConfig{
			Address:    "0.0.0.0:1338",
			MaxViewers: 0,
		},
		Admin: AdminConfig{
			Address:     "127.0.0.1:9000",
			MetricsPath: "/metrics",
		},
		Persistence: PersistenceConfig{
			Path:         "image.qoi",
			SaveInterval: Duration(2 * time.Second),
			QueueDepth:   8,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
