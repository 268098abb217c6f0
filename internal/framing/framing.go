// Package framing implements the SignalR record-separator message framing:
// text frames delimited by the ASCII record separator byte 0x1E.
package framing

import "strings"

// RecordSeparator is the byte that delimits frames on the wire.
const RecordSeparator = 0x1e

// HandshakeFrame is the first inbound frame the server sends once the
// transport handshake completes.
const HandshakeFrame = "{}"

// Write appends the trailing record separator to an outbound message.
func Write(message string) string {
	var b strings.Builder
	b.Grow(len(message) + 1)
	b.WriteString(message)
	b.WriteByte(RecordSeparator)
	return b.String()
}

// Split splits a raw buffer that may contain multiple record-separator
// delimited frames into individual frames, preserving order and dropping
// the trailing separator from each. A buffer with no trailing separator on
// its last frame yields that partial frame as-is (callers that stream
// partial reads should buffer until a terminator is seen; the transport
// used here always delivers one or more complete frames per Receive).
func Split(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, string(rune(RecordSeparator)))
	frames := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		frames = append(frames, p)
	}
	return frames
}

// IsHandshake reports whether frame is the handshake acknowledgement,
// tolerating surrounding whitespace.
func IsHandshake(frame string) bool {
	return strings.TrimSpace(frame) == HandshakeFrame
}
