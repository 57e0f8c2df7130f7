package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geodecay/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	readyPollMin = 50 * time.Millisecond
	readyPollMax = time.Second
)

// Config holds connection parameters for a Redis or Valkey store.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	DB         int
	ClientName string // reported by CLIENT LIST
	// SkipClientSetInfo omits CLIENT SETINFO on connect, for servers
	// that do not implement it (embedded test servers, Redis < 7.2).
	SkipClientSetInfo bool
}

// Store persists collections and documents with plain Redis commands
// (strings, hashes, sets, SCAN). Redis 7+ and Valkey 8+ both work.
type Store struct {
	client rueidis.Client
}

// NewStore dials the configured nodes. Client-side caching stays off:
// documents are read once per index build.
func NewStore(cfg Config) (*Store, error) {
	addrs := make([]string, 0, len(cfg.Addrs))
	for _, a := range cfg.Addrs {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("at least one address is required")
	}

	opt := rueidis.ClientOption{
		InitAddress:  addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   cfg.ClientName,
		DisableCache: true,
	}
	if cfg.SkipClientSetInfo {
		opt.ClientSetInfo = rueidis.DisableClientSetInfo
	}
	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", strings.Join(addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() { s.client.Close() }

// WaitForReady pings with a doubling delay until the store answers or the
// timeout expires. On timeout the last ping error is joined to ctx.Err().
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyPollMin
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("store not ready after %s: %w", timeout, errors.Join(ctx.Err(), lastErr))
		case <-t.C:
		}
		delay = min(delay*2, readyPollMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
