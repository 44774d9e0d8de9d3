//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"encoding/binary"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/psi"
)

// Records hold the parsed input set. Payloads is nil if the input has
// no payload column.
type Records struct {
	Keys     []psi.PrimaryKey
	Payloads []psi.Payload
}

func readRecords(file string) (*Records, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseRecords(f)
}

// parseRecords parses CSV records key[,payload]. The numbers may be
// decimal or 0x-prefixed hexadecimal. Lines starting with '#' are
// comments. Either all records or none have a payload.
func parseRecords(in io.Reader) (*Records, error) {
	r := csv.NewReader(in)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	result := new(Records)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		if len(record) < 1 || len(record) > 2 {
			return nil, errors.Newf("line %d: expected key[,payload]", line)
		}
		key, err := strconv.ParseUint(strings.TrimSpace(record[0]), 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: key", line)
		}
		k := make(psi.PrimaryKey, psi.PrimaryKeySize)
		binary.BigEndian.PutUint64(k, key)
		result.Keys = append(result.Keys, k)

		hasPayload := len(record) == 2
		if len(result.Keys) == 1 && hasPayload {
			result.Payloads = []psi.Payload{}
		}
		if hasPayload != (result.Payloads != nil) {
			return nil, errors.Newf("line %d: inconsistent payload column",
				line)
		}
		if !hasPayload {
			continue
		}
		payload, err := strconv.ParseUint(strings.TrimSpace(record[1]), 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: payload", line)
		}
		result.Payloads = append(result.Payloads, psi.Payload(payload))
	}
	return result, nil
}
