// Package logx wraps zerolog behind a small structured-logging API.
//
// The Service owns the sink configuration (console, JSON file, optional
// chat channel) and can swap it at runtime without invalidating loggers
// that were handed out earlier.
package logx
