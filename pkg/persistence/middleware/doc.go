// Package middleware provides FlowStore decorators: redaction of sensitive
// state fields and AES-GCM envelope encryption with key rotation.
package middleware
