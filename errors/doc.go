// Package errors provides the error taxonomy shared by the declaration
// compiler, request assembly, converters and transports.
// Every error is an *AppError carrying a machine-readable code; callers
// branch on the class of failure with the Is* predicates.
package errors
