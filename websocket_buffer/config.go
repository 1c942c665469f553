package websocket_buffer

import "time"

type Config struct {
	// BaseMaxSize caps the computed queue size.
	BaseMaxSize int
	MinSize     int
	MaxSize     int
	// MaxBackpressure is the socket's buffering budget in bytes.
	MaxBackpressure      int
	EstimatedMessageSize int

	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	MaxRetries    int
}

func DefaultConfig() Config {
	return Config{
		BaseMaxSize:          1000,
		MinSize:              100,
		MaxSize:              5000,
		MaxBackpressure:      128 * 1024,
		EstimatedMessageSize: 1024,
		RetryDelay:           10 * time.Millisecond,
		MaxRetryDelay:        1 * time.Second,
		MaxRetries:           3,
	}
}

// MaxQueueSize sizes a queue in proportion to what the socket is willing to
// buffer, clamped to [MinSize, MaxSize] and then capped by BaseMaxSize.
func MaxQueueSize(cfg Config) int {
	size := cfg.MaxSize
	if cfg.EstimatedMessageSize > 0 {
		size = cfg.MaxBackpressure / cfg.EstimatedMessageSize
	}

	size = max(cfg.MinSize, min(cfg.MaxSize, size))

	if cfg.BaseMaxSize > 0 {
		size = min(size, cfg.BaseMaxSize)
	}

	return max(size, 1)
}

// backoff returns the delay before retry number attempt (1-based).
func backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if cfg.MaxRetryDelay > 0 && delay >= cfg.MaxRetryDelay {
			return cfg.MaxRetryDelay
		}
	}

	if cfg.MaxRetryDelay > 0 && delay > cfg.MaxRetryDelay {
		return cfg.MaxRetryDelay
	}

	return delay
}
