// Package logger provides structured logging backed by zerolog.
//
// Clients log through component-scoped loggers obtained from the
// registry:
//
//	log := logger.Get("rest").WithMethod("UserAPI.Get")
//	log.Debug("call completed", logger.Fields("status_code", 200))
package logger
