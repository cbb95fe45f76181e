package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// maxFrame caps a single message frame. Requests carry picture paths and
// checkbox grids, never picture bytes, so this is generous.
const maxFrame = 8 << 20

// envelope lets gob carry the Message interface value.
type envelope struct {
	M Message
}

// Conn is one end of the duplex conflict channel. Each message is a
// length-prefixed frame holding an independent gob stream, so a message
// written by a different encoder (the supervisor injecting a synthetic
// EndOfCommunication after a kill) still decodes cleanly.
type Conn struct {
	sendMx sync.Mutex
	r      io.ReadCloser
	w      io.WriteCloser
}

func NewConn(r io.ReadCloser, w io.WriteCloser) *Conn {
	return &Conn{r: r, w: w}
}

// Send serializes m and writes it as one frame. Safe for concurrent use.
func (c *Conn) Send(m Message) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{M: m}); err != nil {
		return fmt.Errorf("encoding %T: %w", m, err)
	}

	c.sendMx.Lock()
	defer c.sendMx.Unlock()
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], uint32(buf.Len()))
	if _, err := c.w.Write(head[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := c.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Receive blocks until the next message arrives. Any transport error,
// including a peer disappearing mid-frame, is returned to the caller.
func (c *Conn) Receive() (Message, error) {
	var head [4]byte
	if _, err := io.ReadFull(c.r, head[:]); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(head[:])
	if n > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(c.r, frame); err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	var e envelope
	if err := gob.NewDecoder(bytes.NewReader(frame)).Decode(&e); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	if e.M == nil {
		return nil, errors.New("frame carried no message")
	}
	return e.M, nil
}

// Close releases both directions of the channel end.
func (c *Conn) Close() error {
	return errors.Join(c.r.Close(), c.w.Close())
}

// RoundTrips reports whether m survives serialization with its concrete
// type intact. Mirrors the check done before transmitting a fault: a value
// failing it must be downgraded to a Fault first.
func RoundTrips(m Message) bool {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{M: m}); err != nil {
		return false
	}
	var e envelope
	if err := gob.NewDecoder(&buf).Decode(&e); err != nil {
		return false
	}
	return reflect.TypeOf(e.M) == reflect.TypeOf(m)
}
