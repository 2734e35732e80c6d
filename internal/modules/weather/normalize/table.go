package normalize

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// readLines returns the non-blank lines of a file with a BOM and CR line endings removed.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

// parseRecords splits semicolon separated lines into fields.
func parseRecords(lines []string) ([][]string, error) {
	records, err := newReader(strings.NewReader(strings.Join(lines, "\n"))).ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}

// readTable reads a cleaned or merged file: header first, then rows.
func readTable(path string) ([]string, [][]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, errors.New("empty file")
	}
	records, err := parseRecords(lines)
	if err != nil {
		return nil, nil, err
	}
	return records[0], records[1:], nil
}

// writeTable replaces path with a semicolon separated table.
func writeTable(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	w.Comma = ';'
	writeErr := w.Write(header)
	if writeErr == nil {
		writeErr = w.WriteAll(rows)
	}
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, errors.Join(writeErr, closeErr))
	}
	return os.Rename(tmpName, path)
}
