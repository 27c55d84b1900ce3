package clocksync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ConnectProber reads the reference clock through ClockService.Now
type ConnectProber struct {
	client *connect.Client[emptypb.Empty, timestamppb.Timestamp]
}

// NewConnectProber creates a prober for the server at baseURL
func NewConnectProber(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ConnectProber {
	url := strings.TrimRight(baseURL, "/") + ClockServiceNowProcedure
	return &ConnectProber{
		client: connect.NewClient[emptypb.Empty, timestamppb.Timestamp](httpClient, url, opts...),
	}
}

func (p *ConnectProber) Probe(ctx context.Context) (int64, error) {
	resp, err := p.client.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return 0, err
	}
	if err := resp.Msg.CheckValid(); err != nil {
		return 0, fmt.Errorf("invalid server time: %w", err)
	}
	return resp.Msg.AsTime().UnixMilli(), nil
}

// HTTPProber reads the reference clock from the plain JSON time endpoint
type HTTPProber struct {
	client *http.Client
	url    string
}

// NewHTTPProber creates a prober for url, typically http://host:port/api/time
func NewHTTPProber(client *http.Client, url string) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{client: client, url: url}
}

func (p *HTTPProber) Probe(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build time request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("time endpoint returned %s", resp.Status)
	}

	var body TimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode time response: %w", err)
	}
	return body.ServerMs, nil
}
