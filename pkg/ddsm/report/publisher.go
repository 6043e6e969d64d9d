// Package report mirrors controller events to an MQTT broker.
package report

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
)

// PublishTimeout bounds the wait for a publish to be acknowledged by the
// client, so a slow broker never stalls a motor operation for longer.
const PublishTimeout = 200 * time.Millisecond

// EventsTopic is the topic suffix events are published under.
const EventsTopic = "events"

// Publisher is a ddsm.Reporter publishing events to MQTT.
type Publisher struct {
	Queue   *Queue
	HostID  string
	Device  string
	QoS     byte
	Timeout time.Duration
}

// NewPublisher creates a Publisher for the broker at brokerURL. It doesn't
// connect.
func NewPublisher(brokerURL, hostID string) (*Publisher, error) {
	if hostID == "" {
		return nil, ddsm.NewError(ddsm.InvalidArgument, "new publisher", fmt.Errorf("host id required"))
	}
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, ddsm.NewError(ddsm.InvalidArgument, "new publisher", err)
	}
	return &Publisher{Queue: q, HostID: hostID, Timeout: PublishTimeout}, nil
}

// Topic returns the topic events are published to, without the queue
// prefix.
func Topic(hostID string) string {
	return hostID + "/" + EventsTopic
}

// Connect connects to the broker, waiting at most timeout.
func (p *Publisher) Connect(timeout time.Duration) error {
	token := p.Queue.Connect()
	if !token.WaitTimeout(timeout) {
		return ddsm.NewError(ddsm.Timeout, "connect broker", fmt.Errorf("no answer in %v", timeout))
	}
	if err := token.Error(); err != nil {
		return ddsm.NewError(ddsm.DeviceUnavailable, "connect broker", err)
	}
	return nil
}

// Report implements ddsm.Reporter. Publishing failures are logged only.
func (p *Publisher) Report(ev ddsm.Event) {
	payload, err := proto.Marshal(NewEvent(p.HostID, p.Device, ev))
	if err != nil {
		glog.Errorf("encode event %s: %v", ev, err)
		return
	}
	token := p.Queue.PubWith(Topic(p.HostID), payload, p.QoS, false)
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = PublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		glog.Warningf("publish event %s: not acknowledged in %v", ev, timeout)
		return
	}
	if err := token.Error(); err != nil {
		glog.Warningf("publish event %s: %v", ev, err)
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	return p.Queue.Close()
}
