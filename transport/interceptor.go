package transport

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
)

// Interceptor wraps the round trip of every call made by a Client.
type Interceptor func(next RoundTripFunc) RoundTripFunc

// Chain composes interceptors. The first one is outermost: it runs first
// on the way in and last on the way out.
//
// Chain(a, b, c)(rt) is equivalent to a(b(c(rt))).
func Chain(interceptors ...Interceptor) Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		for i := len(interceptors) - 1; i >= 0; i-- {
			next = interceptors[i](next)
		}
		return next
	}
}

// HeaderRequestID is the header set by RequestID.
const HeaderRequestID = "X-Request-ID"

// RequestID sets X-Request-ID to a fresh UUID unless the request carries one
// already, and stores it on the context for logging.
func RequestID() Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(ctx context.Context, req *Request) (*Response, error) {
			id := req.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.New().String()
				req = req.Clone()
				req.Header.Add(HeaderRequestID, id)
			}
			return next(logger.ContextWithRequestID(ctx, id), req)
		}
	}
}

// Logging logs each exchange at debug level and failures at warn level.
func Logging(log *logger.Logger) Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			l := log.WithContext(ctx)
			fields := logger.Fields(
				logger.FieldHTTPMethod, req.Method,
				logger.FieldURL, req.URL.String(),
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			if err != nil {
				l.WithError(err).Warn("http exchange failed", fields)
				return nil, err
			}
			fields[logger.FieldStatusCode] = resp.StatusCode
			l.Debug("http exchange", fields)
			return resp, nil
		}
	}
}

// Tracing wraps each exchange in a client span and injects the trace
// context into the outgoing headers.
func Tracing() Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(ctx context.Context, req *Request) (*Response, error) {
			ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.full", req.URL.String()),
				),
			)
			defer span.End()

			req = req.Clone()
			otel.GetTextMapPropagator().Inject(ctx, &req.Header)

			resp, err := next(ctx, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= 500 {
				span.SetStatus(codes.Error, resp.Status)
			}
			return resp, nil
		}
	}
}

// Metrics records request counts, durations and in-flight requests.
func Metrics(m *observability.Metrics) Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			m.RecordRequestStart(ctx)
			resp, err := next(ctx, req)
			status := "error"
			if err == nil {
				status = strconv.Itoa(resp.StatusCode)
			}
			m.RecordRequestEnd(ctx, req.URL.Host, req.Method, status, time.Since(start))
			return resp, err
		}
	}
}
