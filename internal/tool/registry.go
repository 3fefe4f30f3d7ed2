package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/engine"
)

// ErrUnknownTool is returned when a plan names a tool no connected host
// advertises.
var ErrUnknownTool = errors.New("tool: unknown tool")

// Registry connects to all configured tool hosts, builds the session tool
// catalog, and routes invocations to the owning host. It implements
// engine.ToolInvoker.
type Registry struct {
	hosts  []*HostClient
	byTool map[string]*HostClient
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byTool: make(map[string]*HostClient),
		logger: logger.With("component", "tool_registry"),
	}
}

// Connect dials every configured host concurrently and indexes its tools.
// A duplicate tool name across hosts keeps the first host's mapping.
func (r *Registry) Connect(ctx context.Context, hosts []config.HostConfig) error {
	clients := make([]*HostClient, len(hosts))

	g, gCtx := errgroup.WithContext(ctx)
	for i, hc := range hosts {
		i, hc := i, hc
		g.Go(func() error {
			client, err := connectHost(gCtx, hc)
			if err != nil {
				return fmt.Errorf("host %q: %w", hc.Name, err)
			}
			clients[i] = client
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, c := range clients {
			if c != nil {
				c.Close()
			}
		}
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, client := range clients {
		r.hosts = append(r.hosts, client)
		for _, td := range client.Tools() {
			if _, taken := r.byTool[td.Name]; taken {
				r.logger.Warn("duplicate tool name, keeping first host",
					"tool", td.Name, "host", client.Name())
				continue
			}
			r.byTool[td.Name] = client
		}
		r.logger.Info("tool host connected",
			"host", client.Name(), "tools", len(client.Tools()))
	}

	return nil
}

// connectHost builds the right transport for one host config and runs the
// handshake.
func connectHost(ctx context.Context, hc config.HostConfig) (*HostClient, error) {
	var transport Transport
	var err error

	switch hc.Transport {
	case "stdio":
		transport, err = NewStdioTransport(ctx, hc.Command, hc.Args, hc.Env)
	case "http":
		transport = NewHTTPTransport(hc.URL, hc.AuthToken)
	case "ws":
		transport, err = NewWSTransport(ctx, hc.URL, hc.AuthToken)
	case "mqtt":
		reqTopic := hc.RequestTopic
		if reqTopic == "" {
			reqTopic = "newshound/tools/requests"
		}
		repTopic := hc.ReplyTopic
		if repTopic == "" {
			repTopic = "newshound/tools/replies"
		}
		mt := NewMQTTTransport(MQTTConfig{
			Broker:       hc.Broker,
			Port:         hc.Port,
			Username:     hc.Username,
			Password:     hc.Password,
			RequestTopic: reqTopic,
			ReplyTopic:   repTopic,
		})
		if err = mt.Connect(); err == nil {
			transport = mt
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", hc.Transport)
	}
	if err != nil {
		return nil, err
	}

	client, err := NewHostClient(ctx, hc.Name, transport)
	if err != nil {
		transport.Close()
		return nil, err
	}
	return client, nil
}

// Catalog returns every discovered tool descriptor, sorted by name for a
// stable planning prompt.
func (r *Registry) Catalog() []engine.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var catalog []engine.ToolDescriptor
	for _, host := range r.hosts {
		for _, td := range host.Tools() {
			if r.byTool[td.Name] == host {
				catalog = append(catalog, td)
			}
		}
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })
	return catalog
}

// Call routes an invocation to the host advertising the tool. It satisfies
// engine.ToolInvoker.
func (r *Registry) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	r.mu.RLock()
	host, ok := r.byTool[tool]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}

	return host.CallTool(ctx, tool, args)
}

// Close shuts down every host connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, host := range r.hosts {
		if err := host.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.hosts = nil
	r.byTool = make(map[string]*HostClient)
	return firstErr
}
