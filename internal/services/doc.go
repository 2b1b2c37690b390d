// Package services defines shared utilities consumed by the workflow core and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp user identifiers, action names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so packaging, storage, and
//     remote service failures stay distinguishable after wrapping.
//
// Clients for the remote workflow service, the run record API, and the object
// store live in the subpackages.
package services
