package web

import (
	"context"
	"fmt"
	"log"

	"motoroute/config"
	dbt "motoroute/db/db"
	"motoroute/db/mem"
	"motoroute/db/pg"
	"motoroute/db/sqlite"
	"motoroute/mq/goch"
	"motoroute/mq/gcppubsub"
	"motoroute/mq/mq"
	"motoroute/mq/rabbit"
	"motoroute/route"
	"motoroute/route/gmaps"
	"motoroute/route/offline"
	"motoroute/route/osrm"
)

type StoreMode string

const (
	StoreModeMem    StoreMode = "mem"
	StoreModePG     StoreMode = "pg"
	StoreModeSQLite StoreMode = "sqlite"
)

type QueueMode string

const (
	QueueModeGoChan    QueueMode = "go_chan"
	QueueModeRabbitMQ  QueueMode = "rabbitmq"
	QueueModeGCPPubSub QueueMode = "gcp_pub_sub"
)

const goChanBufferSize = 100

// OpenStore connects the configured trip store. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (dbt.Store, func(), error) {
	switch StoreMode(cfg.Mode) {
	case StoreModeMem, "":
		log.Println("Using in-memory store; data is lost on restart")
		return mem.NewInMemoryDBWrapper(), func() {}, nil
	case StoreModePG:
		gdb, err := pg.InitPostgresGORM(pg.CreateDSN(cfg))
		if err != nil {
			return nil, nil, err
		}
		return pg.NewGORMDBWrapper(gdb), func() { pg.CloseGORM(gdb) }, nil
	case StoreModeSQLite:
		d, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewSQLiteDBWrapper(d), func() {
			if err := d.Close(); err != nil {
				log.Printf("Error closing sqlite database: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store mode %q", cfg.Mode)
	}
}

// OpenQueue connects the configured trip event queue.
func OpenQueue(ctx context.Context, cfg config.QueueConfig) (mq.TripEventQueue, error) {
	switch QueueMode(cfg.Mode) {
	case QueueModeGoChan, "":
		return goch.NewGoChanTripEventQueue(goChanBufferSize), nil
	case QueueModeRabbitMQ:
		conn, err := rabbit.NewRabbitConnection(cfg.RabbitURL)
		if err != nil {
			return nil, err
		}
		return rabbit.NewRabbitTripEventQueue(conn)
	case QueueModeGCPPubSub:
		client, err := gcppubsub.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, err
		}
		return gcppubsub.NewTripEventQueue(ctx, client)
	default:
		return nil, fmt.Errorf("unknown message queue mode %q", cfg.Mode)
	}
}

// NewRouter builds the configured routing collaborator.
func NewRouter(cfg config.RoutingConfig) (route.Router, error) {
	switch cfg.Provider {
	case "offline", "":
		return offline.NewRouter(), nil
	case "osrm":
		return osrm.NewRouter(cfg.OSRMBaseURL, cfg.Timeout), nil
	case "gmaps":
		return gmaps.NewRouter(cfg.GoogleMapsAPIKey, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown routing provider %q", cfg.Provider)
	}
}
