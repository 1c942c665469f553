package bootstrap

import (
	"time"

	"github.com/lam0glia/social-service/connection"
	"github.com/lam0glia/social-service/http/handler"
	"github.com/lam0glia/social-service/websocket_buffer"
)

func (env *Env) QueueConfig() websocket_buffer.Config {
	return websocket_buffer.Config{
		BaseMaxSize:          env.QueueBaseMaxSize,
		MinSize:              env.QueueMinSize,
		MaxSize:              env.QueueMaxSize,
		MaxBackpressure:      env.MaxBackpressureBytes,
		EstimatedMessageSize: env.EstimatedMessageSizeBytes,
		RetryDelay:           time.Duration(env.RetryDelayMS) * time.Millisecond,
		MaxRetryDelay:        time.Duration(env.MaxRetryDelayMS) * time.Millisecond,
		MaxRetries:           env.MaxRetryAttempts,
	}
}

func (env *Env) ConnectionConfig() connection.Config {
	return connection.Config{
		AuthTimeout: time.Duration(env.AuthTimeoutSeconds) * time.Second,
		Queue:       env.QueueConfig(),
	}
}

func (env *Env) SocketConfig() handler.SocketConfig {
	cfg := handler.DefaultSocketConfig()

	cfg.IdleTimeout = time.Duration(env.IdleTimeoutSeconds) * time.Second
	cfg.MaxBackpressure = env.MaxBackpressureBytes

	// Pings must arrive well within the idle window.
	if ping := cfg.IdleTimeout / 3; ping < cfg.PingPeriod {
		cfg.PingPeriod = ping
	}

	return cfg
}

func (env *Env) AuthMaxSkew() time.Duration {
	return time.Duration(env.AuthMaxSkewSeconds) * time.Second
}
