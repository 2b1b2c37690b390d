// Package dataset bundles user-selected files into the zip archive uploaded
// for fine-tuning. Every file lands under dataset/object/ with its base name.
package dataset
