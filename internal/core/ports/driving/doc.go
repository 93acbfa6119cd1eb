// Package driving provides interfaces for user-facing adapters
// (primary/inbound ports).
package driving
