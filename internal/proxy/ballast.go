package proxy

var (
	// Tunnels churn through short-lived relay buffers. A minimum GC heap
	// size keeps collection rare when few connections are open; GOGC and
	// GOMEMLIMIT can't express this. It only reserves virtual memory, so
	// ignore it in memory profiles.
	ballast = make([]byte, 0, 25_000_000)
	_       = ballast
)
