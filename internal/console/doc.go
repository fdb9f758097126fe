// Package console implements the interactive front end of the safekeeper
// simulator.
//
// The console is a thin presentation layer over services.SecurityContext: it
// reads commands and credentials from the terminal, forwards them to the
// engine and prints the resulting error code. It owns no security rules.
// Credential entry is guarded by an input timer that reports a timeout to the
// engine when the user stays idle for longer than the configured limit.
package console
