package bridge

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Terminator ends every message on the wire, in both directions.
const Terminator = "\r\n"

// ErrBufferLimit is returned by a session when its unterminated message grows past the configured limit.
var ErrBufferLimit = errors.New("message exceeds buffer limit")

// Session is the buffering state of one client connection.
// A Session is not goroutine-safe, it is owned by the goroutine serving its connection.
type Session struct {
	ID string

	// fragments is the unterminated prefix of the next message.
	fragments []string
	size      int
	maxSize   int
}

// NewSession returns a session with a fresh unique ID.
// If maxSize is positive, the session refuses to buffer more than maxSize bytes of one message.
func NewSession(maxSize int) *Session {
	return &Session{
		ID:      uuid.NewString(),
		maxSize: maxSize,
	}
}

// Feed appends a fragment received from the connection and returns every message it completed, in order,
// with terminators stripped.
// Whatever follows the last terminator stays buffered until more data arrives.
// If the buffer limit is exceeded, the buffer is discarded and ErrBufferLimit is returned along with the
// messages completed before the overflow.
func (s *Session) Feed(fragment string) ([]string, error) {
	var messages []string

	// the terminator may straddle the previous fragment and this one
	if strings.HasPrefix(fragment, "\n") && s.endsWithCR() {
		last := len(s.fragments) - 1
		s.fragments[last] = strings.TrimSuffix(s.fragments[last], "\r")
		messages = append(messages, s.drain())
		fragment = fragment[1:]
	}

	for {
		i := strings.Index(fragment, Terminator)
		if i < 0 {
			break
		}
		s.fragments = append(s.fragments, fragment[:i])
		messages = append(messages, s.drain())
		fragment = fragment[i+len(Terminator):]
	}

	if fragment == "" {
		return messages, nil
	}
	s.fragments = append(s.fragments, fragment)
	s.size += len(fragment)
	if s.maxSize > 0 && s.size > s.maxSize {
		s.Reset()
		return messages, ErrBufferLimit
	}
	return messages, nil
}

// Buffered returns the number of bytes of the unterminated message.
func (s *Session) Buffered() int { return s.size }

// Reset discards the unterminated message.
func (s *Session) Reset() {
	s.fragments = nil
	s.size = 0
}

func (s *Session) drain() string {
	msg := strings.Join(s.fragments, "")
	s.Reset()
	return msg
}

func (s *Session) endsWithCR() bool {
	if len(s.fragments) == 0 {
		return false
	}
	return strings.HasSuffix(s.fragments[len(s.fragments)-1], "\r")
}
