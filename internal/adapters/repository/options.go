package repository

import (
	"time"

	"github.com/okian/datablase/pkg/logger"
)

type settings struct {
	log             logger.Logger
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	pingTimeout     time.Duration
}

func defaultSettings() settings {
	return settings{
		log:             logger.Discard(),
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxLifetime: 30 * time.Minute,
		pingTimeout:     5 * time.Second,
	}
}

// Option configures a store.
type Option func(*settings)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxOpenConns bounds the Postgres pool.
func WithMaxOpenConns(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns sets the idle connections kept by the Postgres pool.
func WithMaxIdleConns(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime recycles Postgres connections after d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithPingTimeout bounds the connectivity check done at open.
func WithPingTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pingTimeout = d
		}
	}
}
