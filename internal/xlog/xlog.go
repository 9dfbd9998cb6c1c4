// File: internal/xlog/xlog.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thin leveled-logging shim over the standard logger: a level-prefixed
// log.Printf (TRC/INF/WRN/ERR) rather than a structured logging
// library, for components that just need a timestamped trace line.

package xlog

import "log"

func Trace(format string, args ...any) { log.Printf("[TRC] "+format, args...) }
func Info(format string, args ...any)  { log.Printf("[INF] "+format, args...) }
func Warn(format string, args ...any)  { log.Printf("[WRN] "+format, args...) }
func Error(format string, args ...any) { log.Printf("[ERR] "+format, args...) }
