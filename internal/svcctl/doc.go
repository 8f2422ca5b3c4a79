// Package svcctl queries, stops, and starts the biometric service.
//
// The service control manager has no blocking "wait until state" call, so
// state changes are observed with a fixed-interval, fixed-count Poller.
package svcctl
