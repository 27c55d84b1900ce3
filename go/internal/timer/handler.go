package timer

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/stagetimer/go/internal/rpcutil"
)

// TimerServiceName is the fully-qualified name of the TimerService service.
const TimerServiceName = "stagetimer.v1.TimerService"

// Procedure paths of the TimerService RPCs.
const (
	TimerServiceGetTimerProcedure    = "/stagetimer.v1.TimerService/GetTimer"
	TimerServiceStartProcedure       = "/stagetimer.v1.TimerService/Start"
	TimerServicePauseProcedure       = "/stagetimer.v1.TimerService/Pause"
	TimerServiceResetProcedure       = "/stagetimer.v1.TimerService/Reset"
	TimerServiceSetDurationProcedure = "/stagetimer.v1.TimerService/SetDuration"
	TimerServiceListActionsProcedure = "/stagetimer.v1.TimerService/ListActions"
)

// TimerServiceHandler is implemented by the server side of TimerService.
type TimerServiceHandler interface {
	GetTimer(context.Context, *connect.Request[GetTimerRequest]) (*connect.Response[TimerResponse], error)
	Start(context.Context, *connect.Request[StartRequest]) (*connect.Response[TimerResponse], error)
	Pause(context.Context, *connect.Request[PauseRequest]) (*connect.Response[TimerResponse], error)
	Reset(context.Context, *connect.Request[ResetRequest]) (*connect.Response[TimerResponse], error)
	SetDuration(context.Context, *connect.Request[SetDurationRequest]) (*connect.Response[TimerResponse], error)
	ListActions(context.Context, *connect.Request[ListActionsRequest]) (*connect.Response[ListActionsResponse], error)
}

// NewTimerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. Messages are exchanged as JSON.
func NewTimerServiceHandler(svc TimerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpcutil.WithJSON()}, opts...)

	getTimerHandler := connect.NewUnaryHandler(TimerServiceGetTimerProcedure, svc.GetTimer, opts...)
	startHandler := connect.NewUnaryHandler(TimerServiceStartProcedure, svc.Start, opts...)
	pauseHandler := connect.NewUnaryHandler(TimerServicePauseProcedure, svc.Pause, opts...)
	resetHandler := connect.NewUnaryHandler(TimerServiceResetProcedure, svc.Reset, opts...)
	setDurationHandler := connect.NewUnaryHandler(TimerServiceSetDurationProcedure, svc.SetDuration, opts...)
	listActionsHandler := connect.NewUnaryHandler(TimerServiceListActionsProcedure, svc.ListActions, opts...)

	return "/" + TimerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case TimerServiceGetTimerProcedure:
			getTimerHandler.ServeHTTP(w, r)
		case TimerServiceStartProcedure:
			startHandler.ServeHTTP(w, r)
		case TimerServicePauseProcedure:
			pauseHandler.ServeHTTP(w, r)
		case TimerServiceResetProcedure:
			resetHandler.ServeHTTP(w, r)
		case TimerServiceSetDurationProcedure:
			setDurationHandler.ServeHTTP(w, r)
		case TimerServiceListActionsProcedure:
			listActionsHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
