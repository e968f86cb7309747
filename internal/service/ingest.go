package service

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadEntriesFile reads a .json or .csv statement file.
func ReadEntriesFile(path string) ([]RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadEntriesJSON(f)
	case ".csv":
		return ReadEntriesCSV(f)
	default:
		return nil, fmt.Errorf("unsupported statement format %q (want .json or .csv)", filepath.Ext(path))
	}
}

// ReadEntriesJSON accepts either an array of entries or {"entries": [...]}.
// An element that is not an object becomes an entry marked Malformed.
func ReadEntriesJSON(r io.Reader) ([]RawEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if data[0] == '{' {
		var wrapper struct {
			Entries []json.RawMessage `json:"entries"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode statement: %w", err)
		}
		items = wrapper.Entries
	} else if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode statement: %w", err)
	}

	entries := make([]RawEntry, 0, len(items))
	for _, item := range items {
		var e RawEntry
		if err := json.Unmarshal(item, &e); err != nil {
			e = RawEntry{Malformed: err.Error()}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// csvColumns extends the JSON field names with common bank export headers.
var csvColumns = func() map[string]func(*RawEntry, string) {
	cols := map[string]func(*RawEntry, string){
		"value": func(e *RawEntry, v string) { e.Amount = Flex(v) },
		"memo":  func(e *RawEntry, v string) { e.Description = v },
		"payee": func(e *RawEntry, v string) { e.Merchant = v },
	}
	for name, set := range entryFields {
		cols[name] = set
	}
	return cols
}()

// ReadEntriesCSV reads a statement with a header row. Unknown columns are
// ignored. When a row has no type, a leading "-" on the amount marks an
// expense and a leading "+" an income.
func ReadEntriesCSV(r io.Reader) ([]RawEntry, error) {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	setters := make([]func(*RawEntry, string), len(header))
	known := 0
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		if set, ok := csvColumns[name]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("csv header %v has no known columns", header)
	}

	var entries []RawEntry
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blankRow(rec) {
			continue
		}
		var e RawEntry
		for i, v := range rec {
			if i < len(setters) && setters[i] != nil {
				setters[i](&e, strings.TrimSpace(v))
			}
		}
		applyAmountSign(&e)
		entries = append(entries, e)
	}
	return entries, nil
}

func applyAmountSign(e *RawEntry) {
	if strings.TrimSpace(e.Type) != "" {
		return
	}
	amount := e.Amount.String()
	switch {
	case strings.HasPrefix(amount, "-"):
		e.Type = string(TypeExpense)
		e.Amount = Flex(strings.TrimPrefix(amount, "-"))
	case strings.HasPrefix(amount, "+"):
		e.Type = string(TypeIncome)
		e.Amount = Flex(strings.TrimPrefix(amount, "+"))
	}
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
