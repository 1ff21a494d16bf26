// Package channel provides an in-memory Go channel transport for tests and
// local development. The publisher and subscriber are the same pub/sub.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/replyflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// DefaultConfig is passed to Factory by Build. Replies published while the
// dispatch loop is blocked on the sink are buffered.
var DefaultConfig = gochannel.Config{OutputChannelBuffer: 64}

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register registers the channel transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a fresh pub/sub. Nothing outside the returned Transport can
// reach it; use Shared to feed the dispatch loop from the caller.
func Build(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(DefaultConfig, logger)
	return transport.Transport{Publisher: pub, Subscriber: sub}, nil
}

// Shared returns a builder handing out pubSub, so the caller can publish
// inbound events and subscribe to replies on the same channels.
func Shared(pubSub *gochannel.GoChannel) transport.Builder {
	return func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Transport, error) {
		return transport.Transport{Publisher: pubSub, Subscriber: pubSub}, nil
	}
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}
