package mqtt

import (
	"encoding/json"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/nergy-se/powersampler/pkg/api/v1/power"
	"github.com/sirupsen/logrus"
)

// SubscribeReadings calls fn with every power.Reading published on filter,
// for example "power/+/power". Payloads that do not decode are logged and
// dropped.
func SubscribeReadings(server *mqttv2.Server, filter string, id int, fn func(topic string, r power.Reading)) error {
	return server.Subscribe(filter, id, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		r := power.Reading{}
		err := json.Unmarshal(pk.Payload, &r)
		if err != nil {
			logrus.WithField("topic", pk.TopicName).Warnf("mqtt: error decoding reading: %s", err)
			return
		}
		fn(pk.TopicName, r)
	})
}
