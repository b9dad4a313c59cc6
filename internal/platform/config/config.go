package config

// Config is the root configuration for the modelgate service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	AI        AIConfig        `yaml:"ai"`
	Detection DetectionConfig `yaml:"detection"`
}

type ServerConfig struct {
	IP     string `yaml:"ip"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// AIConfig describes the upstream model execution service.
type AIConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"url"`
	AccountID string `yaml:"account_id"`
	APIToken  string `yaml:"api_token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// DetectionConfig carries defaults and limits for the person detection
// surface.
type DetectionConfig struct {
	ObjectModel    string  `yaml:"object_model"`
	VisionModel    string  `yaml:"vision_model"`
	Threshold      float64 `yaml:"threshold"`
	MinAreaRatio   float64 `yaml:"min_area_ratio"`
	MaxImageBytes  int64   `yaml:"max_image_bytes"`
	FetchTimeoutMs int     `yaml:"fetch_timeout_ms"`
}
