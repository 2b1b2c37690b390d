// Package objectstore stores dataset archives in a bucket addressed by an afs
// URL. Keys are relative to the bucket base.
package objectstore
