package clocksync

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ClockServiceName is the fully-qualified name of the ClockService service.
const ClockServiceName = "stagetimer.v1.ClockService"

// ClockServiceNowProcedure is the path of the ClockService.Now RPC.
const ClockServiceNowProcedure = "/stagetimer.v1.ClockService/Now"

// TimeResponse is the body served on the plain HTTP time endpoint.
type TimeResponse struct {
	ServerMs int64 `json:"serverMs"`
}

// ReferenceClock is the single authoritative clock every start_time is
// written against and every viewer estimates its offset to.
type ReferenceClock struct {
	clock clockwork.Clock
}

// NewReferenceClock wraps clock as the reference clock
func NewReferenceClock(clock clockwork.Clock) *ReferenceClock {
	return &ReferenceClock{clock: clock}
}

// Clock exposes the underlying clock so the controller writes with the same source
func (r *ReferenceClock) Clock() clockwork.Clock {
	return r.clock
}

// NowMillis returns the reference time as Unix milliseconds
func (r *ReferenceClock) NowMillis() int64 {
	return r.clock.Now().UnixMilli()
}

// Now implements ClockService.Now
func (r *ReferenceClock) Now(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[timestamppb.Timestamp], error) {
	return connect.NewResponse(timestamppb.New(r.clock.Now())), nil
}

// ServeHTTP answers GET requests with {"serverMs": <now>}
func (r *ReferenceClock) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(TimeResponse{ServerMs: r.NowMillis()}); err != nil {
		log.Error().Err(err).Msg("failed to write time response")
	}
}

// NewClockServiceHandler mounts the reference clock as a connect service
func NewClockServiceHandler(ref *ReferenceClock, opts ...connect.HandlerOption) (string, http.Handler) {
	nowHandler := connect.NewUnaryHandler(ClockServiceNowProcedure, ref.Now, opts...)
	return "/" + ClockServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ClockServiceNowProcedure:
			nowHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
