package metrics

import (
	"context"
	"net"
)

func (r *Recorder) ServeListener(ctx context.Context, ln net.Listener) error {
	return r.serve(ctx, ln)
}
