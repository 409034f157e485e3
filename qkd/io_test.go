package qkd

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/alan-christopher/qkdsim/qkd/photon"
)

func testRecord(t *testing.T) Record {
	t.Helper()
	p := baseParams(BB84)
	p.QubitCount, p.RunCount = 64, 3
	p.EavesdropPercent, p.QBERPercent = 50, 3
	p.NoiseModel = photon.Depolarizing
	agg, err := newTestSimulator(t, 12).Aggregate(t.Context(), p)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return Record{Params: p, Result: agg}
}

func TestRecordFraming(t *testing.T) {
	recs := []Record{testRecord(t), {Params: baseParams(E91)}}

	var buf bytes.Buffer
	for _, rec := range recs {
		if err := WriteRecord(&buf, rec); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	for i, want := range recs {
		got, err := ReadRecord(&buf)
		if err != nil {
			t.Fatalf("ReadRecord %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("record %d mangled in transit: got %+v, want %+v", i, got, want)
		}
	}
	if _, err := ReadRecord(&buf); err != io.EOF {
		t.Errorf("ReadRecord past the last frame = %v, want io.EOF", err)
	}
}

func TestReadRecordTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecord(&buf, testRecord(t)); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-10])
	if _, err := ReadRecord(truncated); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadRecord of truncated frame = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestUnmarshalRejectsInconsistentEve(t *testing.T) {
	// eve_interfered set without eve_basis/eve_bit.
	var q []byte
	q = appendVarint(q, qID, 4)
	q = appendVarint(q, qEveInterfered, protowire.EncodeBool(true))
	var res []byte
	res = appendMessage(res, resQubit, q)
	var agg []byte
	agg = appendMessage(agg, aggLastRun, res)
	var rec []byte
	rec = appendMessage(rec, recResult, agg)

	if _, err := UnmarshalRecord(rec); err == nil {
		t.Errorf("UnmarshalRecord accepted a qubit with inconsistent eavesdropper fields")
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	b := MarshalRecord(Record{Params: baseParams(E91)})
	b = appendVarint(b, 99, 7)
	b = protowire.AppendTag(b, 100, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1)
	rec, err := UnmarshalRecord(b)
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if rec.Params != baseParams(E91) {
		t.Errorf("Params = %+v, want %+v", rec.Params, baseParams(E91))
	}
}
