package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no server answered within the browse timeout
var ErrNotFound = errors.New("no stage timer server found")

// Config holds discovery configuration
type Config struct {
	Instance string // e.g. "main-stage"
	Service  string // e.g. "_stagetimer._tcp"
	Port     int
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// BaseURL is the http root the display and operator clients talk to
func (s ServerInfo) BaseURL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)))
}

// Advertise announces the server until ctx is done
func Advertise(ctx context.Context, cfg Config) error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		cfg.Instance,
		cfg.Service,
		"",
		"",
		cfg.Port,
		ips,
		[]string{"path=/", "ws=/ws/timer", "time=/api/time"},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Info().
		Str("instance", cfg.Instance).
		Str("service", cfg.Service).
		Int("port", cfg.Port).
		Msg("advertising mDNS service")

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("failed to stop mdns server")
		}
	}()

	return nil
}

// Browse returns the first server of the given service type that answers
// within timeout. An empty instance matches any server.
func Browse(ctx context.Context, service, instance string, timeout time.Duration) (ServerInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	var (
		server ServerInfo
		ok     bool
	)
	go func() {
		defer close(done)
		for entry := range entries {
			if ok || entry.AddrV4 == nil {
				continue
			}
			if instance != "" && !strings.HasPrefix(entry.Name, instance+".") {
				continue
			}
			server = ServerInfo{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
			}
			ok = true
		}
	}()

	params := mdns.DefaultParams(service)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done
	if err != nil {
		return ServerInfo{}, fmt.Errorf("mdns query: %w", err)
	}
	if !ok {
		return ServerInfo{}, ErrNotFound
	}

	log.Info().
		Str("name", server.Name).
		Str("host", server.Host).
		Int("port", server.Port).
		Msg("discovered stage timer server")
	return server, nil
}

// getLocalIPs returns non-loopback IPv4 addresses of interfaces that are up
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
