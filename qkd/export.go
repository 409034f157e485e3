package qkd

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader lists the columns WriteCSV emits.
var CSVHeader = []string{
	"ID", "Alice_Bit", "Alice_Basis", "Eve_Interfered", "Eve_Basis", "Eve_Bit",
	"Channel_Error", "Bob_Basis", "Bob_Bit", "Basis_Match", "Key_Match",
}

// WriteCSV serializes qubits as CSV, one row per qubit under CSVHeader. IDs are
// 1-based; fields that are unset on a qubit are written as empty strings.
func WriteCSV(w io.Writer, qubits []Qubit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, q := range qubits {
		var eveBasis, eveBit, keyMatch string
		if q.Eve != nil {
			eveBasis, eveBit = q.Eve.Basis.String(), q.Eve.Bit.String()
		}
		if q.KeyMatch != nil {
			keyMatch = strconv.FormatBool(*q.KeyMatch)
		}
		row := []string{
			strconv.Itoa(q.ID + 1),
			q.AliceBit.String(),
			q.AliceBasis.String(),
			strconv.FormatBool(q.EveInterfered),
			eveBasis,
			eveBit,
			strconv.FormatBool(q.ChannelError),
			q.BobBasis.String(),
			q.BobBit.String(),
			strconv.FormatBool(q.BasisMatch),
			keyMatch,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
