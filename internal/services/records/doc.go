// Package records links an uploaded dataset to the user's fine-tuning run
// row through a PostgREST style API.
package records
