package correlate

import (
	"time"

	"ucrelay/pkg/extract"
)

// Reply is one inbound message from the counterpart bot, immutable once
// constructed. Seq is the transport-assigned sequence identifier,
// strictly increasing per connection; At is the arrival wall clock and
// is a display/tiebreak field only.
type Reply struct {
	Seq    int64
	At     time.Time
	Raw    string
	Text   string
	Record *extract.Record
}
