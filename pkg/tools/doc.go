// Package tools is the coach's tool catalog: nutrition and workout
// logging, sleep tracking, status notes, history search, chart
// rendering, and web lookups.
//
// Invariants:
// - Arguments are validated against each tool's JSON Schema before the
//   handler runs.
// - Handlers return strings or JSON-encodable values; the registry
//   serializes everything to a string for the model.
package tools
