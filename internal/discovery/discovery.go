package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceName is the mDNS service type advertised by NOVA backends.
const ServiceName = "_nova-backend._tcp"

// DefaultTimeout bounds a browse when the caller does not.
const DefaultTimeout = 5 * time.Second

// Discover browses the local domain for a NOVA backend and returns the
// base URL of the first instance with an IPv4 address. It returns an
// error when the browse window closes without a usable entry.
func Discover(ctx context.Context, timeout time.Duration, logger *slog.Logger) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := resolver.Browse(browseCtx, ServiceName, "local.", entries); err != nil {
		return "", fmt.Errorf("failed to browse for %s: %w", ServiceName, err)
	}

	for entry := range entries {
		if entry == nil || len(entry.AddrIPv4) == 0 {
			continue
		}

		baseURL := fmt.Sprintf("http://%s:%d", entry.AddrIPv4[0], entry.Port)
		logger.Info("discovered backend via mDNS",
			slog.String("instance", entry.Instance),
			slog.String("base_url", baseURL))
		return baseURL, nil
	}

	return "", fmt.Errorf("no %s instance found within %v", ServiceName, timeout)
}
