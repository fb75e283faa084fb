// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/regsearch/core"
)

// MarshalRecord serializes a RegistryRecord to bytes.
func MarshalRecord(record *core.RegistryRecord) []byte {
	buf := make([]byte, core.RegistryRecordMUS.Size(*record))
	core.RegistryRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a RegistryRecord from bytes.
func UnmarshalRecord(data []byte) (*core.RegistryRecord, error) {
	record, _, err := core.RegistryRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalUnifiedRecords serializes a slice of unified records to bytes,
// length-prefixed. Used as the cache value format.
func MarshalUnifiedRecords(records []core.UnifiedRecord) []byte {
	size := varint.Int.Size(len(records))
	for i := range records {
		size += core.UnifiedRecordMUS.Size(records[i])
	}
	buf := make([]byte, size)
	n := varint.Int.Marshal(len(records), buf)
	for i := range records {
		n += core.UnifiedRecordMUS.Marshal(records[i], buf[n:])
	}
	return buf
}

// UnmarshalUnifiedRecords deserializes a length-prefixed slice of unified
// records from bytes.
func UnmarshalUnifiedRecords(data []byte) ([]core.UnifiedRecord, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	// Each record occupies at least one byte, so a count beyond the
	// remaining length is corrupt. Checking before the allocation keeps a
	// mangled cache entry from forcing a huge slice.
	if count < 0 || count > len(data)-n {
		return nil, ErrTruncatedData
	}
	records := make([]core.UnifiedRecord, 0, count)
	for i := 0; i < count; i++ {
		record, n1, err := core.UnifiedRecordMUS.Unmarshal(data[n:])
		if err != nil {
			return nil, err
		}
		n += n1
		records = append(records, record)
	}
	return records, nil
}
