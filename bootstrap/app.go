package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gocql/gocql"
	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/event"
	"github.com/lam0glia/social-service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sony/sonyflake"
)

type App struct {
	Env                *Env
	Logger             *slog.Logger
	Registry           *prometheus.Registry
	Metrics            *metrics.Metrics
	CassandraSession   *gocql.Session
	RabbitMQConnection *amqp.Connection
	RedisClient        *redis.Client
	SonyFlake          *sonyflake.Sonyflake
	Bus                domain.PubSub
}

func NewApp() (*App, error) {
	var (
		err error
		app App
	)

	app.Env, err = newEnv()
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	app.Logger = newLogger(app.Env.EnvironmentName, app.Env.LogLevel)

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)

	app.CassandraSession, err = newCassandra(app.Env.CassandraHosts...)
	if err != nil {
		return nil, fmt.Errorf("create cassandra session: %w", err)
	}

	app.RedisClient, err = newRedis(app.Env.RedisURL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create redis connection: %w", err)
	}

	app.SonyFlake, err = newUIDGenerator(app.Env.UIDGeneratorStartTime, app.Env.MachineID)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("new uid generator: %w", err)
	}

	app.Bus, err = app.newBus()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create bus: %w", err)
	}

	return &app, nil
}

func (app *App) newBus() (domain.PubSub, error) {
	switch app.Env.BusDriver {
	case BusDriverRabbitMQ:
		var err error

		app.RabbitMQConnection, err = amqp.Dial(app.Env.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("create rabbitmq connection: %w", err)
		}

		return event.NewRabbitMQ(app.RabbitMQConnection, app.Logger)

	case BusDriverRedis:
		return event.NewRedis(app.RedisClient, app.Logger), nil

	default:
		return event.NewMemory(), nil
	}
}

// Close releases every connection the app opened.
func (app *App) Close() error {
	var errs []error

	if app.Bus != nil {
		errs = append(errs, app.Bus.Close())
	}

	if app.RabbitMQConnection != nil {
		errs = append(errs, app.RabbitMQConnection.Close())
	}

	if app.RedisClient != nil {
		errs = append(errs, app.RedisClient.Close())
	}

	if app.CassandraSession != nil {
		app.CassandraSession.Close()
	}

	return errors.Join(errs...)
}
