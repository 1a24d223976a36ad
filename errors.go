package dbcache

import "errors"

// ErrClosed is returned by Acquire after the cache has been closed.
var ErrClosed = errors.New("dbcache: cache is closed")

// ConfigError reports missing or malformed configuration detected before any
// connect attempt. It is fatal: the process should not proceed, and no retry
// will help until the configuration changes.
type ConfigError struct {
	msg   string
	cause error
}

func (e *ConfigError) Error() string { return e.msg }
func (e *ConfigError) Unwrap() error { return e.cause }

// ConnectError reports a failed connect attempt. It is recoverable: the
// failure is not cached, and a later Acquire starts a fresh attempt.
//
// The outer message is safe for default production logging. The wrapped
// cause may still contain sensitive detail.
type ConnectError struct {
	msg   string
	cause error
}

func (e *ConnectError) Error() string { return e.msg }
func (e *ConnectError) Unwrap() error { return e.cause }

// SafeError wraps a cause with an error string safe for default production
// logging, for failures outside the connect path (transactions, health
// checks). The wrapped cause may still contain sensitive detail.
type SafeError struct {
	msg   string
	cause error
}

func (e *SafeError) Error() string { return e.msg }
func (e *SafeError) Unwrap() error { return e.cause }
