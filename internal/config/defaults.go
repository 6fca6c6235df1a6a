package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Endpoint: EndpointConfig{},
		Dispatch: DispatchConfig{
			QueueSize:      64,
			Workers:        2,
			RatePerMinute:  30,
			Burst:          5,
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Relay: RelayConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8484,
			Path:    "/send",
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.hookcast/history.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}
