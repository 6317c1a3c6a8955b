package telemetry

import (
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// CommandSink accepts intents from an ingress. Validation and lockout
// enforcement happen behind this interface, not here.
type CommandSink interface {
	Submit(in models.Intent) error
}

// CommandMessage is the JSON body accepted on the command topic.
type CommandMessage struct {
	Kind  string `json:"kind"`
	Mode  string `json:"mode,omitempty"`
	Name  string `json:"name,omitempty"`
	Value any    `json:"value,omitempty"`
}

// PelletMessage is the JSON body accepted on the pellet auxiliary topic.
// The flag only steers energy attribution, never actuators.
type PelletMessage struct {
	Active bool `json:"active"`
}

// SubscribeCommands wires the inbound command and pellet topics to the
// sink. Malformed payloads and rejected intents are logged and dropped;
// they never disturb the connection.
func (p *RealPublisher) SubscribeCommands(sink CommandSink) {
	p.subscribe(p.topics.Command, 1, func(_ paho.Client, msg paho.Message) {
		var cm CommandMessage
		if err := json.Unmarshal(msg.Payload(), &cm); err != nil {
			p.log.Warnw("discarding malformed command message", "topic", msg.Topic(), "error", err)
			return
		}
		in := models.Intent{
			Kind:   models.IntentKind(cm.Kind),
			Mode:   cm.Mode,
			Name:   cm.Name,
			Value:  cm.Value,
			Origin: models.OriginMQTT,
		}
		if err := sink.Submit(in); err != nil {
			p.log.Warnw("mqtt command rejected", "kind", cm.Kind, "error", err)
		}
	})

	p.subscribe(p.topics.PelletAux, 1, func(_ paho.Client, msg paho.Message) {
		var pm PelletMessage
		if err := json.Unmarshal(msg.Payload(), &pm); err != nil {
			p.log.Warnw("discarding malformed pellet message", "topic", msg.Topic(), "error", err)
			return
		}
		in := models.Intent{
			Kind:   models.IntentSetParameter,
			Name:   models.ParamPelletActive,
			Value:  pm.Active,
			Origin: models.OriginMQTT,
		}
		if err := sink.Submit(in); err != nil {
			p.log.Warnw("pellet flag rejected", "error", err)
		}
	})
}
