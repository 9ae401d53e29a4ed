package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"snifferconfig/internal/domain"
)

const maxPooledBufferCapacity = 64 << 10

var encodeBufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// encodeResponse renders the response envelope shared by HTTP and NATS replies.
// Params: validation response.
// Returns: JSON bytes terminated by newline or encode error.
func encodeResponse(response domain.Response) ([]byte, error) {
	buffer := acquireBuffer()
	defer releaseBuffer(buffer)

	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(response); err != nil {
		return nil, fmt.Errorf("encode validation response: %w", err)
	}
	out := make([]byte, buffer.Len())
	copy(out, buffer.Bytes())
	return out, nil
}

// statusFor maps validation outcome to HTTP status.
func statusFor(response domain.Response) int {
	if response.OK {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func acquireBuffer() *bytes.Buffer {
	return encodeBufferPool.Get().(*bytes.Buffer)
}

func releaseBuffer(buffer *bytes.Buffer) {
	if buffer == nil || buffer.Cap() > maxPooledBufferCapacity {
		return
	}
	buffer.Reset()
	encodeBufferPool.Put(buffer)
}
