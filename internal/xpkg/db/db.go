package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/logger"
)

const pingTimeout = 10 * time.Second

type DB struct {
	ctx   context.Context
	pool  *pgxpool.Pool
	mylog logger.Logger
}

// Start opens a connection pool to the remote store and pings it. The access
// key is sent as the connection password so it never has to be embedded in
// the URL.
func Start(ctx context.Context, storeCfg config.Store, mylog logger.Logger) (*DB, error) {
	d, err := Open(ctx, storeCfg, mylog)
	if err != nil {
		return nil, err
	}
	if err := d.IsAlive(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mylog.Action("db_connected").Info("Connected to remote store")
	return d, nil
}

// Open builds the pool without connecting. Connections are dialed on first
// use, so a store that is down at startup is picked up once it answers.
func Open(ctx context.Context, storeCfg config.Store, mylog logger.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(storeCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	poolCfg.ConnConfig.Password = storeCfg.Key
	if storeCfg.MaxConns > 0 {
		poolCfg.MaxConns = storeCfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{
		ctx:   ctx,
		pool:  pool,
		mylog: mylog,
	}, nil
}

func (d *DB) GetPool() *pgxpool.Pool {
	return d.pool
}

// IsAlive pings the store to verify it's responsive.
func (d *DB) IsAlive() error {
	if d.pool == nil {
		return fmt.Errorf("DB is not initialized")
	}
	ctx, cancel := context.WithTimeout(d.ctx, pingTimeout)
	defer cancel()
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}
