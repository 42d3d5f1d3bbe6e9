// Package infra wires process-level concerns: configuration and logging.
package infra
