package openai

import (
	"bufio"
	"bytes"
	"io"
)

var doneSentinel = []byte("[DONE]")

// sseReader yields the data payload of each server-sent event.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// next returns the joined data lines of the next event, or io.EOF when the
// stream ends. Events without data lines (comments, keep-alives) are skipped.
func (s *sseReader) next() ([]byte, error) {
	var dataLines [][]byte
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		trimmed := bytes.TrimRight(line, "\r\n")

		if len(trimmed) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}

		if bytes.HasPrefix(trimmed, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(trimmed[len("data:"):]))
		}

		if err == io.EOF {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, io.EOF
		}
	}
}

func isDone(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), doneSentinel)
}
