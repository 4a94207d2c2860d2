package typing

import "time"

// DefaultTTL is the client inactivity window after which an indicator
// reads as not typing regardless of what was stored.
const DefaultTTL = 4 * time.Second
