package transport

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/kbukum/restkit/errors"
)

// classify maps a net/http failure onto the error taxonomy.
func classify(ctx context.Context, req *Request, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.Canceled().WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		return errors.Timeout(req.String(), err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Timeout(req.String(), err)
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) && opErr.Op == "dial" {
		host := ""
		if req.URL != nil {
			host = req.URL.Host
		}
		return errors.ConnectionFailed(host, err)
	}
	return errors.Transport(err)
}
