package logger

import (
	"time"
)

// Standard field keys.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldMethod     = "method"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldRequestID  = "request_id"
	FieldHTTPMethod = "http_method"
	FieldURL        = "url"
	FieldStatusCode = "status_code"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("compiled", logger.Fields("method", "UserAPI.Get", "bindings", 2))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for a method that failed.
func ErrorFields(method string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod: method,
		FieldError:  err.Error(),
	}
}

// DurationFields creates fields for a timed method call.
func DurationFields(method string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod:   method,
		FieldDuration: d.Milliseconds(),
	}
}
