// Package device defines the transport-neutral view of a BLE peripheral used
// by a fetch session.
//
// It provides:
//   - The Link and Connector interfaces implemented by transports
//   - Typed connection and lookup errors shared by all transports
//   - UUID normalization and the fixed GATT identifiers of the SBM69
package device
