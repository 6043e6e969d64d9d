package report

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
)

// Event is the wire form of ddsm.Event, encoded with protobuf.
type Event struct {
	HostId       string `protobuf:"bytes,1,opt,name=host_id,json=hostId,proto3" json:"host_id,omitempty"`
	Device       string `protobuf:"bytes,2,opt,name=device,proto3" json:"device,omitempty"`
	TimeUnixNano int64  `protobuf:"varint,3,opt,name=time_unix_nano,json=timeUnixNano,proto3" json:"time_unix_nano,omitempty"`
	Type         string `protobuf:"bytes,4,opt,name=type,proto3" json:"type,omitempty"`
	Op           string `protobuf:"bytes,5,opt,name=op,proto3" json:"op,omitempty"`
	Motor        uint32 `protobuf:"varint,6,opt,name=motor,proto3" json:"motor,omitempty"`
	Attempt      uint32 `protobuf:"varint,7,opt,name=attempt,proto3" json:"attempt,omitempty"`
	Frame        []byte `protobuf:"bytes,8,opt,name=frame,proto3" json:"frame,omitempty"`
	Error        string `protobuf:"bytes,9,opt,name=error,proto3" json:"error,omitempty"`
	ErrorKind    string `protobuf:"bytes,10,opt,name=error_kind,json=errorKind,proto3" json:"error_kind,omitempty"`
}

// Reset implements proto.Message.
func (m *Event) Reset() { *m = Event{} }

// String implements proto.Message.
func (m *Event) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Event) ProtoMessage() {}

// NewEvent converts ev into its wire form.
func NewEvent(hostID, device string, ev ddsm.Event) *Event {
	m := &Event{
		HostId:  hostID,
		Device:  device,
		Type:    ev.Type.String(),
		Op:      ev.Op,
		Motor:   uint32(ev.Motor),
		Attempt: uint32(ev.Attempt),
		Frame:   ev.Frame,
	}
	if !ev.Time.IsZero() {
		m.TimeUnixNano = ev.Time.UnixNano()
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
		if kind := ddsm.KindOf(ev.Err); kind != 0 {
			m.ErrorKind = kind.Error()
		}
	}
	return m
}

// Time returns the event time.
func (m *Event) Time() time.Time {
	return time.Unix(0, m.TimeUnixNano)
}

// DecodeEvent decodes a published payload.
func DecodeEvent(payload []byte) (*Event, error) {
	m := &Event{}
	if err := proto.Unmarshal(payload, m); err != nil {
		return nil, err
	}
	return m, nil
}
