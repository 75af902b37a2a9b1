// Package chart defines the astral chart submission types and the input
// validator.
//
// Validate(raw) checks every rule independently and reports all violations
// together, so a client fixing its request sees the full picture in one
// round trip. A chart.Input only exists if validation passed — no component
// downstream of the validator ever sees a partially valid submission.
package chart
