// Package decl holds the declaration model consumed by the rest compiler:
// services, their methods, and each method's parameters with their binding
// kinds. The model is plain data. It can be written by hand with the
// builders in this package, derived from struct tags by package bind, or
// extracted from an OpenAPI document by package openapi.
package decl
