package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/cuemby/atelier/pkg/wire"
)

// maxFrameSize bounds a single message's encoded size, guarding against a
// corrupt or hostile length prefix driving an unbounded allocation.
const maxFrameSize = 64 << 20

// writeMessage frames msg as a 4-byte big-endian length prefix followed by
// its MessagePack encoding, and writes it to conn.
func writeMessage(conn net.Conn, msg wire.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := conn.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// readMessage blocks until a full frame arrives on conn and decodes it.
func readMessage(conn net.Conn) (wire.Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return wire.Message{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return wire.Message{}, fmt.Errorf("read frame: size %d exceeds max %d", size, maxFrameSize)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return wire.Message{}, fmt.Errorf("read frame body: %w", err)
	}
	return wire.DecodeMessage(body)
}
