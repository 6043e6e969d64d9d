package report

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// EventHandler receives decoded events. topic has the queue prefix removed.
type EventHandler func(topic string, ev *Event)

// Queue is the MQTT client events are published to and watched on. All
// topics are relative to TopicPrefix.
type Queue struct {
	Client      paho.Client
	TopicPrefix string

	lock     sync.Mutex
	watching map[string]paho.MessageHandler
}

// ClientOptionsFromURL creates ClientOptions from a broker URL of the form
// mqtt://[user:pass@]host:port/topic-prefix[?client-id=ID].
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	opts := paho.NewClientOptions().
		AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("MQTT connection lost: %v", err)
	})
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// PubWith publishes an encoded event.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	if glog.V(3) {
		glog.Infof("PUB %q %d bytes", q.TopicPrefix+topic, len(payload))
	}
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// SubEvents watches the events of hostID, + for all hosts. Undecodable
// payloads are logged and dropped. Watching the same hostID again replaces
// the handler. Subscriptions are restored after a reconnect.
func (q *Queue) SubEvents(hostID string, fn EventHandler) paho.Token {
	filter := q.TopicPrefix + Topic(hostID)
	handler := func(_ paho.Client, msg paho.Message) {
		q.deliver(msg.Topic(), msg.Payload(), fn)
	}
	q.lock.Lock()
	if q.watching == nil {
		q.watching = make(map[string]paho.MessageHandler)
	}
	q.watching[filter] = handler
	q.lock.Unlock()
	glog.V(2).Infof("SUB %q", filter)
	return q.Client.Subscribe(filter, 0, handler)
}

// UnsubEvents stops watching the events of hostID.
func (q *Queue) UnsubEvents(hostID string) paho.Token {
	filter := q.TopicPrefix + Topic(hostID)
	q.lock.Lock()
	delete(q.watching, filter)
	q.lock.Unlock()
	glog.V(2).Infof("UNSUB %q", filter)
	return q.Client.Unsubscribe(filter)
}

func (q *Queue) onConnect(c paho.Client) {
	glog.Info("MQTT connected")
	q.lock.Lock()
	defer q.lock.Unlock()
	for filter, handler := range q.watching {
		c.Subscribe(filter, 0, handler)
	}
}

func (q *Queue) deliver(topic string, payload []byte, fn EventHandler) {
	topic = strings.TrimPrefix(topic, q.TopicPrefix)
	ev, err := DecodeEvent(payload)
	if err != nil {
		glog.Warningf("%s: bad event: %v", topic, err)
		return
	}
	fn(topic, ev)
}
