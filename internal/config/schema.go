package config

// Config is the top-level YAML structure.
type Config struct {
	Version string     `yaml:"version" validate:"required"`
	Engine  EngineConf `yaml:"engine"`
	Trees   []string   `yaml:"trees" validate:"dive,required"` // tree JSON files or directories
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	ExecuteWorkers   int `yaml:"execute_workers" validate:"gte=1,lte=1024"`
	QueueDepth       int `yaml:"queue_depth" validate:"gte=1"`
	NotifyWorkers    int `yaml:"notify_workers" validate:"gte=1,lte=1024"`
	NotifyQueueDepth int `yaml:"notify_queue_depth" validate:"gte=1"`
}

// ApplyDefaults fills zero values with the stock settings.
func (c *EngineConf) ApplyDefaults() {
	if c.ExecuteWorkers == 0 {
		c.ExecuteWorkers = 8
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = 1000
	}
	if c.NotifyWorkers == 0 {
		c.NotifyWorkers = 4
	}
	if c.NotifyQueueDepth == 0 {
		c.NotifyQueueDepth = 10000
	}
}
