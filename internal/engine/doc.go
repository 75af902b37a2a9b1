// Package engine adapts the external astral chart computation engine.
//
// The Engine interface takes a validated submission and returns the opaque
// chart payload. GRPC talks to the real engine over gRPC; since the engine
// team owns the result schema, payloads travel as structpb values rather
// than generated message types. Local is a minimal built-in engine so the
// service runs end to end without the external dependency.
package engine
