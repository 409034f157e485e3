package qkd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/alan-christopher/qkdsim/qkd/photon"
)

// A Record is the persisted form of an aggregated simulation.
type Record struct {
	Params Params
	Result AggregatedResult
}

// Records are encoded in the protocol buffer wire format. The schema, in proto3
// terms:
//
//	message Record { Params params = 1; Aggregate result = 2; }
//	message Params {
//	  uint32 protocol = 1; int64 qubit_count = 2; int64 run_count = 3;
//	  uint32 noise_model = 4; double rectilinear_percent = 5;
//	  double eavesdrop_percent = 6; double qber_percent = 7;
//	}
//	message Aggregate {
//	  int64 total_runs = 1; double avg_sifted = 2; double avg_final = 3;
//	  double avg_qber = 4; double qber_stddev = 5; double final_key_rate = 6;
//	  Result last_run = 7;
//	}
//	message Result {
//	  int64 sifted = 1; int64 sampled = 2; int64 final = 3; double qber = 4;
//	  repeated Qubit qubits = 5;
//	}
//	message Qubit {
//	  int64 id = 1; uint32 alice_bit = 2; uint32 alice_basis = 3;
//	  bool eve_interfered = 4; optional uint32 eve_basis = 5;
//	  optional uint32 eve_bit = 6; bool channel_error = 7; uint32 bob_basis = 8;
//	  uint32 bob_bit = 9; bool basis_match = 10; optional bool key_match = 11;
//	}
//
// Optional fields are emitted only when set on the Qubit.
const (
	recParams protowire.Number = 1
	recResult protowire.Number = 2

	parProtocol    protowire.Number = 1
	parQubitCount  protowire.Number = 2
	parRunCount    protowire.Number = 3
	parNoiseModel  protowire.Number = 4
	parRectPercent protowire.Number = 5
	parEvePercent  protowire.Number = 6
	parQBERPercent protowire.Number = 7

	aggTotalRuns  protowire.Number = 1
	aggAvgSifted  protowire.Number = 2
	aggAvgFinal   protowire.Number = 3
	aggAvgQBER    protowire.Number = 4
	aggQBERStdDev protowire.Number = 5
	aggKeyRate    protowire.Number = 6
	aggLastRun    protowire.Number = 7

	resSifted  protowire.Number = 1
	resSampled protowire.Number = 2
	resFinal   protowire.Number = 3
	resQBER    protowire.Number = 4
	resQubit   protowire.Number = 5

	qID            protowire.Number = 1
	qAliceBit      protowire.Number = 2
	qAliceBasis    protowire.Number = 3
	qEveInterfered protowire.Number = 4
	qEveBasis      protowire.Number = 5
	qEveBit        protowire.Number = 6
	qChannelError  protowire.Number = 7
	qBobBasis      protowire.Number = 8
	qBobBit        protowire.Number = 9
	qBasisMatch    protowire.Number = 10
	qKeyMatch      protowire.Number = 11
)

// maxRecordSize bounds the length prefix ReadRecord accepts.
const maxRecordSize = 64 << 20

// MarshalRecord encodes rec in the protocol buffer wire format.
func MarshalRecord(rec Record) []byte {
	var b []byte
	b = appendMessage(b, recParams, marshalParams(rec.Params))
	b = appendMessage(b, recResult, marshalAggregate(rec.Result))
	return b
}

// UnmarshalRecord decodes a Record produced by MarshalRecord.
func UnmarshalRecord(b []byte) (Record, error) {
	var rec Record
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case recParams:
			rec.Params, err = unmarshalParams(f.bytes)
		case recResult:
			rec.Result, err = unmarshalAggregate(f.bytes)
		}
		return err
	})
	if err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}

// WriteRecord writes rec to w, framed as: length | record. The length is a
// little-endian int32.
func WriteRecord(w io.Writer, rec Record) error {
	marshalled := MarshalRecord(rec)
	if err := binary.Write(w, binary.LittleEndian, int32(len(marshalled))); err != nil {
		return err
	}
	_, err := w.Write(marshalled)
	return err
}

// ReadRecord reads one record framed by WriteRecord. It returns io.EOF if r is
// exhausted before a new frame starts.
func ReadRecord(r io.Reader) (Record, error) {
	var mLen int32
	if err := binary.Read(r, binary.LittleEndian, &mLen); err != nil {
		return Record{}, err
	}
	if mLen < 0 || mLen > maxRecordSize {
		return Record{}, fmt.Errorf("invalid record length %d", mLen)
	}
	marshalled := make([]byte, mLen)
	if _, err := io.ReadFull(r, marshalled); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	return UnmarshalRecord(marshalled)
}

func marshalParams(p Params) []byte {
	var b []byte
	b = appendVarint(b, parProtocol, uint64(p.Protocol))
	b = appendVarint(b, parQubitCount, uint64(p.QubitCount))
	b = appendVarint(b, parRunCount, uint64(p.RunCount))
	b = appendVarint(b, parNoiseModel, uint64(p.NoiseModel))
	b = appendDouble(b, parRectPercent, p.RectilinearBasisPercent)
	b = appendDouble(b, parEvePercent, p.EavesdropPercent)
	b = appendDouble(b, parQBERPercent, p.QBERPercent)
	return b
}

func unmarshalParams(b []byte) (Params, error) {
	var p Params
	err := walk(b, func(f field) error {
		switch f.num {
		case parProtocol:
			p.Protocol = Protocol(f.v)
		case parQubitCount:
			p.QubitCount = int(f.v)
		case parRunCount:
			p.RunCount = int(f.v)
		case parNoiseModel:
			p.NoiseModel = photon.NoiseModel(f.v)
		case parRectPercent:
			p.RectilinearBasisPercent = f.double()
		case parEvePercent:
			p.EavesdropPercent = f.double()
		case parQBERPercent:
			p.QBERPercent = f.double()
		}
		return nil
	})
	return p, err
}

func marshalAggregate(a AggregatedResult) []byte {
	var b []byte
	b = appendVarint(b, aggTotalRuns, uint64(a.TotalRuns))
	b = appendDouble(b, aggAvgSifted, a.AvgSiftedKeyLength)
	b = appendDouble(b, aggAvgFinal, a.AvgFinalKeyLength)
	b = appendDouble(b, aggAvgQBER, a.AvgMeasuredQBER)
	b = appendDouble(b, aggQBERStdDev, a.QBERStdDev)
	b = appendDouble(b, aggKeyRate, a.FinalKeyRate)
	b = appendMessage(b, aggLastRun, marshalResult(a.LastRun))
	return b
}

func unmarshalAggregate(b []byte) (AggregatedResult, error) {
	var a AggregatedResult
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case aggTotalRuns:
			a.TotalRuns = int(f.v)
		case aggAvgSifted:
			a.AvgSiftedKeyLength = f.double()
		case aggAvgFinal:
			a.AvgFinalKeyLength = f.double()
		case aggAvgQBER:
			a.AvgMeasuredQBER = f.double()
		case aggQBERStdDev:
			a.QBERStdDev = f.double()
		case aggKeyRate:
			a.FinalKeyRate = f.double()
		case aggLastRun:
			a.LastRun, err = unmarshalResult(f.bytes)
		}
		return err
	})
	return a, err
}

func marshalResult(r Result) []byte {
	var b []byte
	b = appendVarint(b, resSifted, uint64(r.SiftedKeyLength))
	b = appendVarint(b, resSampled, uint64(r.SampleSize))
	b = appendVarint(b, resFinal, uint64(r.FinalKeyLength))
	b = appendDouble(b, resQBER, r.MeasuredQBER)
	for _, q := range r.Qubits {
		b = appendMessage(b, resQubit, marshalQubit(q))
	}
	return b
}

func unmarshalResult(b []byte) (Result, error) {
	var r Result
	err := walk(b, func(f field) error {
		switch f.num {
		case resSifted:
			r.SiftedKeyLength = int(f.v)
		case resSampled:
			r.SampleSize = int(f.v)
		case resFinal:
			r.FinalKeyLength = int(f.v)
		case resQBER:
			r.MeasuredQBER = f.double()
		case resQubit:
			q, err := unmarshalQubit(f.bytes)
			if err != nil {
				return err
			}
			r.Qubits = append(r.Qubits, q)
		}
		return nil
	})
	return r, err
}

func marshalQubit(q Qubit) []byte {
	var b []byte
	b = appendVarint(b, qID, uint64(q.ID))
	b = appendVarint(b, qAliceBit, uint64(q.AliceBit))
	b = appendVarint(b, qAliceBasis, uint64(q.AliceBasis))
	b = appendVarint(b, qEveInterfered, protowire.EncodeBool(q.EveInterfered))
	if q.Eve != nil {
		b = appendVarint(b, qEveBasis, uint64(q.Eve.Basis))
		b = appendVarint(b, qEveBit, uint64(q.Eve.Bit))
	}
	b = appendVarint(b, qChannelError, protowire.EncodeBool(q.ChannelError))
	b = appendVarint(b, qBobBasis, uint64(q.BobBasis))
	b = appendVarint(b, qBobBit, uint64(q.BobBit))
	b = appendVarint(b, qBasisMatch, protowire.EncodeBool(q.BasisMatch))
	if q.KeyMatch != nil {
		b = appendVarint(b, qKeyMatch, protowire.EncodeBool(*q.KeyMatch))
	}
	return b
}

func unmarshalQubit(b []byte) (Qubit, error) {
	var (
		q                      Qubit
		hasEveBasis, hasEveBit bool
		eve                    photon.State
	)
	err := walk(b, func(f field) error {
		switch f.num {
		case qID:
			q.ID = int(f.v)
		case qAliceBit:
			q.AliceBit = photon.Bit(f.v)
		case qAliceBasis:
			q.AliceBasis = photon.Basis(f.v)
		case qEveInterfered:
			q.EveInterfered = protowire.DecodeBool(f.v)
		case qEveBasis:
			eve.Basis, hasEveBasis = photon.Basis(f.v), true
		case qEveBit:
			eve.Bit, hasEveBit = photon.Bit(f.v), true
		case qChannelError:
			q.ChannelError = protowire.DecodeBool(f.v)
		case qBobBasis:
			q.BobBasis = photon.Basis(f.v)
		case qBobBit:
			q.BobBit = photon.Bit(f.v)
		case qBasisMatch:
			q.BasisMatch = protowire.DecodeBool(f.v)
		case qKeyMatch:
			km := protowire.DecodeBool(f.v)
			q.KeyMatch = &km
		}
		return nil
	})
	if err != nil {
		return Qubit{}, err
	}
	if hasEveBasis != hasEveBit || hasEveBasis != q.EveInterfered {
		return Qubit{}, fmt.Errorf("qubit %d: eavesdropper fields inconsistent with eve_interfered", q.ID)
	}
	if hasEveBasis {
		q.Eve = &eve
	}
	return q, nil
}

// A field is a single decoded key/value pair. Scalars land in v, length
// delimited values in bytes.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	v     uint64
	bytes []byte
}

func (f field) double() float64 {
	return math.Float64frombits(f.v)
}

// walk calls fn for every field in b. Groups and 32-bit fields are skipped.
func walk(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}
