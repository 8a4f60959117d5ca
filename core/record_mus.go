package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// ErrInvalidLength indicates a negative or oversized length prefix.
var ErrInvalidLength = errors.New("invalid length")

// RecordMUS serializes Record values in MUS format. IndexedAt is stored as
// Unix microseconds in UTC.
var RecordMUS = recordMUS{}

type recordMUS struct{}

func (s recordMUS) Marshal(v Record, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Bucket, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += varint.Int.Marshal(v.ChunkIndex, bs[n:])
	n += varint.Int.Marshal(v.Page, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int64.Marshal(unixMicro(v.IndexedAt), bs[n:])
	return
}

func (s recordMUS) Unmarshal(bs []byte) (v Record, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Bucket, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Page, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	// each element takes four bytes, so a length beyond that is corrupt
	if length < 0 || length*4 > len(bs)-n {
		err = ErrInvalidLength
		return
	}
	if length > 0 {
		v.Vector = make([]float32, length)
		for i := range v.Vector {
			v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if micros != 0 {
		v.IndexedAt = time.UnixMicro(micros).UTC()
	}
	return
}

func (s recordMUS) Size(v Record) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Bucket)
	size += ord.String.Size(v.Name)
	size += varint.Int.Size(v.ChunkIndex)
	size += varint.Int.Size(v.Page)
	size += ord.String.Size(v.Text)
	size += varint.Int.Size(len(v.Vector))
	size += 4 * len(v.Vector)
	size += varint.Int64.Size(unixMicro(v.IndexedAt))
	return
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
