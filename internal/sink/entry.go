package sink

import (
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/google/uuid"
)

// Entry is one accepted identifier, wire format of MQTT sink payload.
type Entry struct {
	RecordId             string   `protobuf:"bytes,1,opt,name=record_id,json=recordId,proto3" json:"record_id,omitempty"`
	Identifier           string   `protobuf:"bytes,2,opt,name=identifier,proto3" json:"identifier,omitempty"`
	UnixTime             int64    `protobuf:"varint,3,opt,name=unix_time,json=unixTime,proto3" json:"unix_time,omitempty"`
	TerminalId           uint32   `protobuf:"varint,4,opt,name=terminal_id,json=terminalId,proto3" json:"terminal_id,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *Entry) Reset()         { *m = Entry{} }
func (m *Entry) String() string { return proto.CompactTextString(m) }
func (*Entry) ProtoMessage()    {}

func NewEntry(identifier string, t time.Time, terminalId uint32) *Entry {
	return &Entry{
		RecordId:   uuid.New().String(),
		Identifier: identifier,
		UnixTime:   t.Unix(),
		TerminalId: terminalId,
	}
}

func (m *Entry) Time() time.Time { return time.Unix(m.UnixTime, 0) }
