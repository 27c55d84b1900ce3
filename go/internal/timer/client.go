package timer

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/mcdev12/stagetimer/go/internal/rpcutil"
)

var errEmptyResponse = errors.New("timer service returned no timer")

// Client calls a remote TimerService. It is what the operator console and
// the displays use to act on and fetch the shared record.
type Client struct {
	getTimer    *connect.Client[GetTimerRequest, TimerResponse]
	start       *connect.Client[StartRequest, TimerResponse]
	pause       *connect.Client[PauseRequest, TimerResponse]
	reset       *connect.Client[ResetRequest, TimerResponse]
	setDuration *connect.Client[SetDurationRequest, TimerResponse]
	listActions *connect.Client[ListActionsRequest, ListActionsResponse]
}

// NewClient creates a TimerService client for the server at baseURL
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{rpcutil.WithJSON()}, opts...)

	return &Client{
		getTimer:    connect.NewClient[GetTimerRequest, TimerResponse](httpClient, baseURL+TimerServiceGetTimerProcedure, opts...),
		start:       connect.NewClient[StartRequest, TimerResponse](httpClient, baseURL+TimerServiceStartProcedure, opts...),
		pause:       connect.NewClient[PauseRequest, TimerResponse](httpClient, baseURL+TimerServicePauseProcedure, opts...),
		reset:       connect.NewClient[ResetRequest, TimerResponse](httpClient, baseURL+TimerServiceResetProcedure, opts...),
		setDuration: connect.NewClient[SetDurationRequest, TimerResponse](httpClient, baseURL+TimerServiceSetDurationProcedure, opts...),
		listActions: connect.NewClient[ListActionsRequest, ListActionsResponse](httpClient, baseURL+TimerServiceListActionsProcedure, opts...),
	}
}

func (c *Client) GetTimer(ctx context.Context) (*models.TimerRecord, error) {
	resp, err := c.getTimer.CallUnary(ctx, connect.NewRequest(&GetTimerRequest{}))
	return unwrapTimer(resp, err)
}

func (c *Client) Start(ctx context.Context) (*models.TimerRecord, error) {
	resp, err := c.start.CallUnary(ctx, connect.NewRequest(&StartRequest{}))
	return unwrapTimer(resp, err)
}

func (c *Client) Pause(ctx context.Context) (*models.TimerRecord, error) {
	resp, err := c.pause.CallUnary(ctx, connect.NewRequest(&PauseRequest{}))
	return unwrapTimer(resp, err)
}

func (c *Client) Reset(ctx context.Context) (*models.TimerRecord, error) {
	resp, err := c.reset.CallUnary(ctx, connect.NewRequest(&ResetRequest{}))
	return unwrapTimer(resp, err)
}

func (c *Client) SetDuration(ctx context.Context, minutes string) (*models.TimerRecord, error) {
	resp, err := c.setDuration.CallUnary(ctx, connect.NewRequest(&SetDurationRequest{Minutes: minutes}))
	return unwrapTimer(resp, err)
}

func (c *Client) ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error) {
	resp, err := c.listActions.CallUnary(ctx, connect.NewRequest(&ListActionsRequest{Limit: limit}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg.Actions, nil
}

func unwrapTimer(resp *connect.Response[TimerResponse], err error) (*models.TimerRecord, error) {
	if err != nil {
		return nil, fromConnectError(err)
	}
	if resp.Msg.Timer == nil {
		return nil, errEmptyResponse
	}
	return resp.Msg.Timer, nil
}
