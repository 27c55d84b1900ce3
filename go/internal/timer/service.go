package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/stagetimer/go/internal/models"
)

// TimerApp defines what the service layer needs from the timer application
type TimerApp interface {
	GetTimer(ctx context.Context) (*models.TimerRecord, error)
	Start(ctx context.Context) (*models.TimerRecord, error)
	Pause(ctx context.Context) (*models.TimerRecord, error)
	Reset(ctx context.Context) (*models.TimerRecord, error)
	SetDuration(ctx context.Context, minutes string) (*models.TimerRecord, error)
	ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error)
}

// Service implements the TimerService RPC interface
type Service struct {
	app TimerApp
}

// NewService creates a new timer RPC service
func NewService(app TimerApp) *Service {
	return &Service{
		app: app,
	}
}

// Verify that Service implements the TimerServiceHandler interface
var _ TimerServiceHandler = (*Service)(nil)

// GetTimer returns the current record
func (s *Service) GetTimer(ctx context.Context, req *connect.Request[GetTimerRequest]) (*connect.Response[TimerResponse], error) {
	rec, err := s.app.GetTimer(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TimerResponse{Timer: rec}), nil
}

// Start starts the countdown
func (s *Service) Start(ctx context.Context, req *connect.Request[StartRequest]) (*connect.Response[TimerResponse], error) {
	rec, err := s.app.Start(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TimerResponse{Timer: rec}), nil
}

// Pause pauses a running countdown
func (s *Service) Pause(ctx context.Context, req *connect.Request[PauseRequest]) (*connect.Response[TimerResponse], error) {
	rec, err := s.app.Pause(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TimerResponse{Timer: rec}), nil
}

// Reset stops the countdown
func (s *Service) Reset(ctx context.Context, req *connect.Request[ResetRequest]) (*connect.Response[TimerResponse], error) {
	rec, err := s.app.Reset(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TimerResponse{Timer: rec}), nil
}

// SetDuration retargets the countdown
func (s *Service) SetDuration(ctx context.Context, req *connect.Request[SetDurationRequest]) (*connect.Response[TimerResponse], error) {
	rec, err := s.app.SetDuration(ctx, req.Msg.Minutes)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TimerResponse{Timer: rec}), nil
}

// ListActions returns the action log
func (s *Service) ListActions(ctx context.Context, req *connect.Request[ListActionsRequest]) (*connect.Response[ListActionsResponse], error) {
	actions, err := s.app.ListActions(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListActionsResponse{Actions: actions}), nil
}

// toConnectError maps controller errors onto connect codes
func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrNotRunning), errors.Is(err, ErrZeroDuration):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrStoreUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// fromConnectError restores the sentinel for errors coming back over the wire
func fromConnectError(err error) error {
	var sentinel error
	switch connect.CodeOf(err) {
	case connect.CodeInvalidArgument:
		sentinel = ErrInvalidInput
	case connect.CodeFailedPrecondition:
		sentinel = ErrNotRunning
		var cerr *connect.Error
		if errors.As(err, &cerr) && strings.Contains(cerr.Message(), ErrZeroDuration.Error()) {
			sentinel = ErrZeroDuration
		}
	case connect.CodeUnavailable:
		sentinel = ErrStoreUnavailable
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
