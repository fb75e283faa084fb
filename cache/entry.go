package cache

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// entry is the wire format stored on the backend: the opaque value plus
// its expiry as unix milliseconds.
type entry struct {
	Data      []byte
	ExpiresAt int64
}

func (e entry) expired(now time.Time) bool {
	return now.UnixMilli() >= e.ExpiresAt
}

type entrySer struct{}

// entryMUS serializes cache entries in MUS format.
var entryMUS = entrySer{}

func (entrySer) Marshal(e entry, bs []byte) (n int) {
	n = ord.String.Marshal(string(e.Data), bs)
	n += varint.Int64.Marshal(e.ExpiresAt, bs[n:])
	return n
}

func (entrySer) Unmarshal(bs []byte) (e entry, n int, err error) {
	var data string
	data, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return entry{}, n, err
	}
	var n1 int
	e.Data = []byte(data)
	e.ExpiresAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return e, n, err
}

func (entrySer) Size(e entry) int {
	return ord.String.Size(string(e.Data)) + varint.Int64.Size(e.ExpiresAt)
}

// marshalEntry serializes an entry to bytes.
func marshalEntry(e entry) []byte {
	buf := make([]byte, entryMUS.Size(e))
	entryMUS.Marshal(e, buf)
	return buf
}

// unmarshalEntry deserializes an entry from bytes.
func unmarshalEntry(data []byte) (entry, error) {
	e, _, err := entryMUS.Unmarshal(data)
	return e, err
}
