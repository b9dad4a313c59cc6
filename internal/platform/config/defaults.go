package config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir: "./web",
		},
		AI: AIConfig{
			Provider:  "workersai",
			BaseURL:   "https://api.cloudflare.com/client/v4",
			TimeoutMs: 60000,
		},
		Detection: DetectionConfig{
			ObjectModel:    "@cf/facebook/detr-resnet-50",
			VisionModel:    "@cf/llava-hf/llava-1.5-7b-hf",
			Threshold:      0.7,
			MinAreaRatio:   0.2,
			MaxImageBytes:  10 * 1024 * 1024,
			FetchTimeoutMs: 15000,
		},
	}
}
