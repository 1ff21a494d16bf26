package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities_SupportsReliableDelivery(t *testing.T) {
	assert.True(t, ChannelCapabilities.SupportsReliableDelivery())
	assert.True(t, RabbitMQCapabilities.SupportsReliableDelivery())
	assert.False(t, KafkaCapabilities.SupportsReliableDelivery())
	assert.False(t, NATSCapabilities.SupportsReliableDelivery())
}

func TestCapabilities_CanCarry(t *testing.T) {
	assert.True(t, ChannelCapabilities.CanCarry(10<<20))
	assert.True(t, KafkaCapabilities.CanCarry(1048576))
	assert.False(t, KafkaCapabilities.CanCarry(1048577))
}

func TestPredefinedCapabilitiesCarryHeaders(t *testing.T) {
	for _, caps := range []Capabilities{ChannelCapabilities, KafkaCapabilities, RabbitMQCapabilities, NATSCapabilities} {
		t.Run(caps.Name, func(t *testing.T) {
			assert.NotEmpty(t, caps.Name)
			assert.True(t, caps.SupportsHeaders)
		})
	}
}
