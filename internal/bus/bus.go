// Package bus provides the in-process message bus the engine and its
// producers share, plus the logger adapter that routes watermill's internal
// logging through zerolog.
package bus

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// New returns an in-memory pub/sub. Each subscriber gets its own buffered
// output channel; publishing never blocks on a slow consumer until the buffer
// fills.
func New(buffer int64, log zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		NewLogger(log),
	)
}
