package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet-ops-api/config"
)

// Conn is a database connection checked out for one logical operation.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

type Provisioner interface {
	Acquire(ctx context.Context) (Conn, error)
}

// PoolProvisioner hands out connections from a pgx pool.
type PoolProvisioner struct {
	pool *pgxpool.Pool
}

// NewPoolProvisioner builds the pool without dialing; an unreachable
// database surfaces later as ErrConnectionFailure from Acquire.
func NewPoolProvisioner(ctx context.Context, cfg config.DatabaseConfig) (*PoolProvisioner, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db pool init failed: %w", err)
	}
	return &PoolProvisioner{pool: pool}, nil
}

func (p *PoolProvisioner) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}
	return c, nil
}

func (p *PoolProvisioner) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}
	return nil
}

func (p *PoolProvisioner) Close() {
	p.pool.Close()
}

// WithConn runs fn on a freshly acquired connection and releases it on
// every exit path. Nothing is released when acquisition fails.
func WithConn(ctx context.Context, p Provisioner, fn func(Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}
