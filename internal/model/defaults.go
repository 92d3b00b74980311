package model

import "time"

// Shared defaults used by the core, the CLI and the dashboard.
const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultUpdateInterval = time.Second
	DefaultViewLimit      = 500
	DefaultRateWindow     = 3 * time.Second
	DefaultHeaderLines    = 4
	DefaultTimezone       = "Asia/Tokyo"
	DefaultLogPrefix      = "TWChatLog"
	DefaultLogExt         = "html"
)
