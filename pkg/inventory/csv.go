package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/newtron-network/ifdesc/pkg/util"
)

// Accepted header names per field. "enable" is the historic column name.
var csvColumns = map[string]string{
	"hostname":        "hostname",
	"host":            "hostname",
	"protocol":        "protocol",
	"username":        "username",
	"password":        "password",
	"enable":          "enable",
	"enable_password": "enable",
}

func parseCSV(r io.Reader) ([]Device, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	for i, h := range header {
		if field, ok := csvColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			index[field] = i
		}
	}
	if _, ok := index["hostname"]; !ok {
		return nil, fmt.Errorf("missing hostname column in header %v", header)
	}

	// Secrets are taken verbatim; only names are trimmed.
	raw := func(rec []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	col := func(rec []string, field string) string {
		return strings.TrimSpace(raw(rec, field))
	}

	var devices []Device
	v := &util.ValidationBuilder{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		// Comment and blank lines are skipped by the reader, so count
		// rows by their position in the file.
		row, _ := cr.FieldPos(0)

		dev := Device{
			Hostname:       col(rec, "hostname"),
			Username:       col(rec, "username"),
			Password:       raw(rec, "password"),
			EnablePassword: raw(rec, "enable"),
		}
		if dev.Hostname == "" {
			v.AddErrorf("row %d: hostname is required", row)
			continue
		}
		proto, err := ParseProtocol(col(rec, "protocol"))
		if err != nil {
			v.AddErrorf("row %d (%s): %v", row, dev.Hostname, err)
			continue
		}
		dev.Protocol = proto
		devices = append(devices, dev)
	}

	if err := v.Build(); err != nil {
		return nil, err
	}
	return devices, nil
}
