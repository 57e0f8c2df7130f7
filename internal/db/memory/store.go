// Package memory runs the Redis store against an embedded miniredis
// server, for local runs and tests without an external Redis.
package memory

import (
	"fmt"

	"github.com/alicebob/miniredis/v2"

	"github.com/kailas-cloud/geodecay/internal/db"
	"github.com/kailas-cloud/geodecay/internal/db/redis"
)

var _ db.Store = (*Store)(nil)

// Store is a redis.Store connected to an in-process miniredis server.
// Data lives only as long as the process.
type Store struct {
	*redis.Store
	server *miniredis.Miniredis
}

// NewStore starts an embedded server on a random local port and connects
// to it.
func NewStore() (*Store, error) {
	srv, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("start embedded redis: %w", err)
	}
	s, err := redis.NewStore(redis.Config{
		Addrs:             []string{srv.Addr()},
		SkipClientSetInfo: true,
	})
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("connect embedded redis: %w", err)
	}
	return &Store{Store: s, server: srv}, nil
}

// Server exposes the embedded server, e.g. to fast-forward TTLs.
func (s *Store) Server() *miniredis.Miniredis { return s.server }

// Close disconnects the client and stops the server.
func (s *Store) Close() {
	s.Store.Close()
	s.server.Close()
}
