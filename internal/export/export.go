// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes analysis artifacts into an output directory.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/projection"
)

// Format is the encoding of structured artifacts.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be json or yaml)", s)
	}
}

// Writer writes artifacts atomically under one directory. Empty data is
// logged and skipped rather than written as an empty file.
type Writer struct {
	dir    string
	format Format
	log    zerolog.Logger
	files  []string
}

// NewWriter returns a writer for dir.
func NewWriter(dir string, format Format, log zerolog.Logger) *Writer {
	return &Writer{dir: dir, format: format, log: log}
}

// Files lists the paths written so far, in write order.
func (w *Writer) Files() []string {
	return append([]string(nil), w.files...)
}

// MetricsCSV writes metrics.csv with durations in seconds.
func (w *Writer) MetricsCSV(records []metrics.MetricRecord) error {
	const name = "metrics.csv"
	if len(records) == 0 {
		w.skip(name)
		return nil
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := []string{"ticket_id", "developer", "team", "sprint"}
	for _, f := range metrics.Fields() {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range records {
		row := []string{m.TicketID, m.Developer, m.Team, strconv.Itoa(m.Sprint)}
		for _, f := range metrics.Fields() {
			row = append(row, strconv.FormatFloat(m.Seconds(f), 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return w.write(name, buf.Bytes(), len(records))
}

// Artifact writes v as <name>.<format>. n is the number of entries v holds;
// zero skips the artifact.
func (w *Writer) Artifact(name string, v any, n int) error {
	file := name + "." + string(w.format)
	if n == 0 {
		w.skip(file)
		return nil
	}
	data, err := Marshal(w.format, v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", file, err)
	}
	return w.write(file, data, n)
}

// DORA writes dora_metrics.<format>. ok == false marks an empty batch.
func (w *Writer) DORA(s metrics.DORASummary, ok bool) error {
	n := 0
	if ok {
		n = 1
	}
	return w.Artifact("dora_metrics", s, n)
}

// Text writes a pre-rendered document such as the Markdown summary.
func (w *Writer) Text(name, content string) error {
	return w.write(name, []byte(content), 1)
}

func (w *Writer) write(name string, data []byte, n int) error {
	path := filepath.Join(w.dir, name)
	if err := projection.AtomicWrite(path, data); err != nil {
		return err
	}
	w.files = append(w.files, path)
	w.log.Debug().Str("file", path).Int("entries", n).Msg("artifact written")
	return nil
}

func (w *Writer) skip(name string) {
	w.log.Warn().Str("file", name).Msg("no data to export, skipping")
}

// Marshal encodes v as indented JSON or YAML.
func Marshal(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
