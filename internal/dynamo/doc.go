// Package dynamo provides the primitives shared by the layout engine.
//
// The package defines the value types that cross component boundaries:
//
//   - [Config]: cooling schedule and force defaults for a simulation
//   - [NodeInput], [LinkInput]: construction input with optional fields
//   - [NodeProperties], [LinkProperties]: fully resolved physical properties
//   - [NodeState], [Snapshot]: the observable state handed to renderers
//
// Defaults are resolved exactly once, when a node or link enters the
// simulation, so force evaluation never branches on missing values:
//
//	cfg := dynamo.DefaultConfig()
//	props := cfg.ResolveNode(input.Properties)
//
// # Errors
//
// Validation failures wrap one of the sentinel errors ([ErrDuplicateID],
// [ErrUnknownNodeReference], [ErrInvalidConfig], ...) so callers can use
// errors.Is regardless of the structured wrapper.
package dynamo
