package engine

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/astroserve/astroserve/internal/chart"
)

// computeMethod is the full method name of the chart engine's unary RPC.
// Both sides exchange structpb.Struct values, so no generated stubs are
// required on this side.
const computeMethod = "/astro.v1.ChartEngine/ComputeChart"

// GRPC is an Engine backed by the external chart engine service.
type GRPC struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// DialGRPC connects to the engine at addr. The connection is lazy; dial
// errors surface on the first Compute call.
func DialGRPC(addr string, timeout time.Duration) (*GRPC, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("engine: dial %q: %w", addr, err)
	}
	return &GRPC{conn: conn, timeout: timeout}, nil
}

// Compute invokes the engine and returns the chart payload. The call is
// bounded by the configured timeout; a deadline overrun is reported as a
// normal error so the dispatcher records a failed outcome.
func (g *GRPC) Compute(ctx context.Context, in chart.Input) (map[string]any, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := structpb.NewStruct(map[string]any{
		"date": in.BirthDate,
		"time": in.BirthTime,
		"lat":  in.Latitude,
		"lng":  in.Longitude,
		"name": in.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: encode request: %w", err)
	}

	var resp structpb.Struct
	if err := g.conn.Invoke(ctx, computeMethod, req, &resp); err != nil {
		if status.Code(err) == codes.DeadlineExceeded {
			return nil, fmt.Errorf("engine: compute timed out after %s", g.timeout)
		}
		return nil, fmt.Errorf("engine: compute: %w", err)
	}
	return resp.AsMap(), nil
}

// Close tears down the client connection.
func (g *GRPC) Close() error {
	return g.conn.Close()
}
