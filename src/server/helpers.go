package server

import (
	"net"
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// -----------------------------------------------------------------------------

// nextAcceptDelay backs off temporary accept failures from 5ms up to 1s
func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	return min(prev*2, time.Second)
}

// -----------------------------------------------------------------------------

// parseLimit reads a positive ?limit= value, falling back to def and capping at maxLimit
func parseLimit(raw string, def, maxLimit int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxLimit)
}
