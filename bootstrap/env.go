package bootstrap

import (
	"fmt"
	"slices"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ProductionEnvironmentName  = "production"
	DevelopmentEnvironmentName = "development"
)

const (
	BusDriverRabbitMQ = "rabbitmq"
	BusDriverRedis    = "redis"
	BusDriverMemory   = "memory"
)

type Env struct {
	EnvironmentName string `env:"ENVIRONMENT_NAME" env-required:"true"`
	HTTPPortNumber  int    `env:"HTTP_PORT_NUMBER" env-default:"8080"`
	LogLevel        string `env:"LOG_LEVEL" env-default:"info"`

	CassandraHosts []string `env:"CASSANDRA_HOSTS" env-required:"true"`
	RedisURL       string   `env:"REDIS_URL" env-required:"true"`
	RabbitMQURL    string   `env:"RABBITMQ_URL"`
	BusDriver      string   `env:"BUS_DRIVER" env-default:"rabbitmq"`

	UIDGeneratorStartTime string `env:"UNIQUE_ID_GENERATOR_START_TIME" env-default:"2024-06-13"`
	MachineID             uint16 `env:"MACHINE_ID" env-required:"true"`

	AuthSecret         string `env:"AUTH_SECRET" env-required:"true"`
	AuthMaxSkewSeconds int    `env:"AUTH_MAX_SKEW_SECONDS" env-default:"300"`
	AuthTimeoutSeconds int    `env:"AUTH_TIMEOUT_SECONDS" env-default:"10"`
	IdleTimeoutSeconds int    `env:"IDLE_TIMEOUT_SECONDS" env-default:"90"`

	MaxBackpressureBytes      int `env:"MAX_BACKPRESSURE_BYTES" env-default:"131072"`
	QueueBaseMaxSize          int `env:"QUEUE_BASE_MAX_SIZE" env-default:"1000"`
	QueueMinSize              int `env:"QUEUE_MIN_SIZE" env-default:"100"`
	QueueMaxSize              int `env:"QUEUE_MAX_SIZE" env-default:"5000"`
	EstimatedMessageSizeBytes int `env:"ESTIMATED_MESSAGE_SIZE_BYTES" env-default:"1024"`
	RetryDelayMS              int `env:"RETRY_DELAY_MS" env-default:"10"`
	MaxRetryAttempts          int `env:"MAX_RETRY_ATTEMPTS" env-default:"3"`
	MaxRetryDelayMS           int `env:"MAX_RETRY_DELAY_MS" env-default:"1000"`
}

func newEnv() (*Env, error) {
	var env Env
	err := cleanenv.ReadConfig(".env", &env)
	if err != nil {
		// Containers pass everything through the environment.
		if err = cleanenv.ReadEnv(&env); err != nil {
			return nil, err
		}
	}

	if err = env.validate(); err != nil {
		return nil, err
	}

	return &env, nil
}

func (env *Env) validate() error {
	if !slices.Contains(
		[]string{DevelopmentEnvironmentName, ProductionEnvironmentName},
		env.EnvironmentName,
	) {
		return fmt.Errorf(
			"ENVIRONMENT_NAME must be one of %s or %s",
			ProductionEnvironmentName,
			DevelopmentEnvironmentName,
		)
	}

	if !slices.Contains(
		[]string{BusDriverRabbitMQ, BusDriverRedis, BusDriverMemory},
		env.BusDriver,
	) {
		return fmt.Errorf(
			"BUS_DRIVER must be one of %s, %s or %s",
			BusDriverRabbitMQ,
			BusDriverRedis,
			BusDriverMemory,
		)
	}

	if env.BusDriver == BusDriverRabbitMQ && env.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required when BUS_DRIVER is %s", BusDriverRabbitMQ)
	}

	if env.QueueMinSize > env.QueueMaxSize {
		return fmt.Errorf("QUEUE_MIN_SIZE must not exceed QUEUE_MAX_SIZE")
	}

	return nil
}
