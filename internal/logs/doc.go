// Package logs reads the tuner log file for the CLI "logs" command.
//
// Last returns the final N lines with bounded memory and the offset to
// continue from; Follow streams lines appended after that offset until the
// context ends.
package logs
