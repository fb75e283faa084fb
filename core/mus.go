package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the types that cross a storage or
// cache boundary. Field order is part of the wire format; append-only.

type registryRecordSer struct{}

// RegistryRecordMUS serializes RegistryRecord in MUS format.
var RegistryRecordMUS = registryRecordSer{}

func (registryRecordSer) Marshal(r RegistryRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.Ident, bs)
	n += ord.String.Marshal(r.Name, bs[n:])
	n += ord.String.Marshal(r.Address, bs[n:])
	n += ord.String.Marshal(r.LegalForm, bs[n:])
	n += ord.String.Marshal(r.ActivityCode, bs[n:])
	n += ord.String.Marshal(r.Status, bs[n:])
	n += ord.String.Marshal(r.Source, bs[n:])
	return n
}

func (registryRecordSer) Unmarshal(bs []byte) (r RegistryRecord, n int, err error) {
	fields := []*string{&r.Ident, &r.Name, &r.Address, &r.LegalForm, &r.ActivityCode, &r.Status, &r.Source}
	for _, field := range fields {
		var n1 int
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return r, n, err
		}
	}
	return r, n, nil
}

func (registryRecordSer) Size(r RegistryRecord) (size int) {
	for _, field := range []string{r.Ident, r.Name, r.Address, r.LegalForm, r.ActivityCode, r.Status, r.Source} {
		size += ord.String.Size(field)
	}
	return size
}

type unifiedRecordSer struct{}

// UnifiedRecordMUS serializes UnifiedRecord in MUS format.
var UnifiedRecordMUS = unifiedRecordSer{}

func (unifiedRecordSer) Marshal(r UnifiedRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.BusinessKey, bs)
	n += ord.String.Marshal(r.Name, bs[n:])
	n += ord.String.Marshal(r.Address, bs[n:])
	n += ord.String.Marshal(r.LegalForm, bs[n:])
	n += ord.String.Marshal(r.ActivityCode, bs[n:])
	n += ord.String.Marshal(r.Status, bs[n:])
	n += ord.String.Marshal(r.Source, bs[n:])
	n += varint.Float32.Marshal(r.Score, bs[n:])
	return n
}

func (unifiedRecordSer) Unmarshal(bs []byte) (r UnifiedRecord, n int, err error) {
	fields := []*string{&r.BusinessKey, &r.Name, &r.Address, &r.LegalForm, &r.ActivityCode, &r.Status, &r.Source}
	for _, field := range fields {
		var n1 int
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return r, n, err
		}
	}
	var n1 int
	r.Score, n1, err = varint.Float32.Unmarshal(bs[n:])
	n += n1
	return r, n, err
}

func (unifiedRecordSer) Size(r UnifiedRecord) (size int) {
	for _, field := range []string{r.BusinessKey, r.Name, r.Address, r.LegalForm, r.ActivityCode, r.Status, r.Source} {
		size += ord.String.Size(field)
	}
	return size + varint.Float32.Size(r.Score)
}
