/*
Package observability turns compile lifecycle events into prometheus metrics
and structured log records. Both are exposed as domain.CompileHooks and can be
combined with CompileHooks.Merge.
*/
package observability
