// Package logs reads the winfp log file for the `winfp logs` command.
//
// Last returns the trailing lines with bounded memory; Follow streams lines
// appended after an offset until its context is canceled.
package logs
