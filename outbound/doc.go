// Package outbound decides which cross process headers an outbound request
// carries and builds them.
//
// Distributed tracing and CAT are mutually exclusive for a single request,
// with distributed tracing taking precedence. The synthetics header is added
// independently of both.
package outbound
