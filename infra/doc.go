// Package infra groups the concrete adapters behind the core interfaces:
// MongoDB job storage, the Redis geo index, MQTT push delivery, metrics sinks
// and the zerolog logger.
package infra
