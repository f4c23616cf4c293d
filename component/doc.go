// Package component defines the lifecycle contract shared by long-lived
// clients, and a Registry that starts them in order and stops them in
// reverse.
package component
