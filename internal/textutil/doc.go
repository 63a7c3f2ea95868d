// Package textutil turns capture file names, subjects and style labels into
// filesystem-safe tokens and human-readable display labels.
package textutil
