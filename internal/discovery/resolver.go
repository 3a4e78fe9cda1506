// Package discovery finds the local port the host process listens on.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/historic-flag-overlay/internal/config"
)

var ErrProbeFailed = errors.New("probe failed")

// Endpoint is where the host's bridge socket listens.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) URL() string {
	return "ws://" + net.JoinHostPort(e.Host, strconv.Itoa(e.Port)) + "/"
}

// PortCache persists the last discovered port.
type PortCache interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, port int) error
	Clear(ctx context.Context) error
}

type Resolver struct {
	cfg    config.Discovery
	cache  PortCache
	client *http.Client
	log    *zap.Logger
}

func NewResolver(cfg config.Discovery, cache PortCache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		cfg:    cfg,
		cache:  cache,
		client: &http.Client{},
		log:    log,
	}
}

// Resolve never fails: when no host answers it returns the default port.
func (r *Resolver) Resolve(ctx context.Context) Endpoint {
	if port, ok := r.fromCache(ctx); ok {
		return r.endpoint(port)
	}

	if port, err := r.probe(ctx, r.cfg.DefaultPort, r.cfg.Path); err == nil {
		r.log.Debug("host answered on default port", zap.Int("port", port))
		return r.endpoint(port)
	}

	for _, path := range []string{r.cfg.Path, r.cfg.LegacyPath} {
		if path == "" {
			continue
		}
		if port, ok := r.sweep(ctx, path); ok {
			r.remember(ctx, port)
			return r.endpoint(port)
		}
	}

	r.log.Warn("bridge port not discovered, using default",
		zap.Int("port", r.cfg.DefaultPort),
		zap.Int("sweepLow", r.cfg.SweepLow),
		zap.Int("sweepHigh", r.cfg.SweepHigh))
	return r.endpoint(r.cfg.DefaultPort)
}

func (r *Resolver) endpoint(port int) Endpoint {
	return Endpoint{Host: r.cfg.Host, Port: port}
}

func (r *Resolver) fromCache(ctx context.Context) (int, bool) {
	if r.cache == nil {
		return 0, false
	}
	cached, err := r.cache.Load(ctx)
	if err != nil {
		return 0, false
	}

	port, err := r.probe(ctx, cached, r.cfg.Path)
	if err == nil {
		r.log.Debug("cached bridge port is live", zap.Int("port", port))
		return port, true
	}

	r.log.Info("discarding stale cached port", zap.Int("port", cached), zap.Error(err))
	if err := r.cache.Clear(ctx); err != nil {
		r.log.Warn("clear port cache", zap.Error(err))
	}
	return 0, false
}

func (r *Resolver) remember(ctx context.Context, port int) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Save(ctx, port); err != nil {
		r.log.Warn("persist bridge port", zap.Int("port", port), zap.Error(err))
	}
}

// sweep probes every candidate port concurrently and returns the first
// answer; outstanding probes are cancelled once one succeeds.
func (r *Resolver) sweep(ctx context.Context, path string) (int, bool) {
	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan int, r.cfg.SweepHigh-r.cfg.SweepLow+1)
	g, gctx := errgroup.WithContext(sweepCtx)
	for candidate := r.cfg.SweepLow; candidate <= r.cfg.SweepHigh; candidate++ {
		g.Go(func() error {
			port, err := r.probe(gctx, candidate, path)
			if err != nil {
				return nil
			}
			found <- port
			cancel()
			return nil
		})
	}
	_ = g.Wait()
	close(found)

	port, ok := <-found
	if ok {
		r.log.Info("bridge port discovered", zap.Int("port", port), zap.String("path", path))
	}
	return port, ok
}

// probe asks candidate for the bridge port. Transport errors, timeouts,
// non-2xx statuses and non-numeric bodies all come back as ErrProbeFailed.
func (r *Resolver) probe(ctx context.Context, candidate int, path string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	url := "http://" + net.JoinHostPort(r.cfg.Host, strconv.Itoa(candidate)) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Debug("probe", zap.String("url", url), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s returned %d", ErrProbeFailed, url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: %s body %q is not a port", ErrProbeFailed, url, body)
	}
	return port, nil
}
