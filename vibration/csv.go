package vibration

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/relvacode/iso8601"
)

const (
	csvTitle  = "# Vibration Fault Detection System - Streaming Data Export"
	csvHeader = "Time,Amplitude"
)

// CSVExport is the content of a file written by WriteCSV.
type CSVExport struct {
	ExportedAt   time.Time
	TotalSamples int
	Stats        StatSnapshot
	Samples      []Sample
}

// WriteCSV writes samples as a Time,Amplitude table preceded by '#'
// metadata lines describing the export and the current statistics.
func WriteCSV(w io.Writer, samples []Sample, stats StatSnapshot, exportedAt time.Time) error {
	bw := bufio.NewWriter(w)

	lines := []string{
		csvTitle,
		"# Export Date: " + exportedAt.UTC().Format(time.RFC3339),
		fmt.Sprintf("# Total Samples: %d", len(samples)),
		fmt.Sprintf("# Current Amplitude: %.4f", stats.Amplitude),
		fmt.Sprintf("# Current RMS: %.4f", stats.RMS),
		fmt.Sprintf("# Peak-to-Peak: %.4f", stats.PeakToPeak),
		"#",
		"# Data Format: Time (seconds), Amplitude",
		csvHeader,
	}
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}

	for _, s := range samples {
		row := strconv.FormatFloat(s.Time, 'f', -1, 64) + "," + strconv.FormatFloat(s.Amplitude, 'f', -1, 64) + "\n"
		if _, err := bw.WriteString(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	return bw.Flush()
}

// ParseSignal extracts a signal from free-form text. Tokens are separated by
// commas or whitespace; every token that parses as a finite number is kept
// in order and anything else is skipped. Text without any tokens is a
// *ParseError, fewer than MinSignalLength numbers a *ValidationError.
func ParseSignal(text string) ([]float64, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(tokens) == 0 {
		return nil, &ParseError{Message: "no content"}
	}

	signal := make([]float64, 0, len(tokens))
	for _, token := range tokens {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		signal = append(signal, v)
	}

	if err := ValidateSignal(signal); err != nil {
		return nil, err
	}
	return signal, nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) (*CSVExport, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	export := &CSVExport{}
	headerSeen := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if err := export.readMetadata(strings.TrimSpace(strings.TrimPrefix(line, "#")), lineNo); err != nil {
				return nil, err
			}
			continue
		}

		if !headerSeen {
			if !strings.EqualFold(line, csvHeader) {
				return nil, &ParseError{Line: lineNo, Message: fmt.Sprintf("expected %q header", csvHeader)}
			}
			headerSeen = true
			continue
		}

		timeField, ampField, ok := strings.Cut(line, ",")
		if !ok {
			return nil, &ParseError{Line: lineNo, Message: "expected two comma-separated fields"}
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(timeField), 64)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: "invalid time value"}
		}
		a, err := strconv.ParseFloat(strings.TrimSpace(ampField), 64)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: "invalid amplitude value"}
		}
		export.Samples = append(export.Samples, Sample{Time: t, Amplitude: a})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if lineNo == 0 {
		return nil, &ParseError{Message: "no content"}
	}
	if !headerSeen {
		return nil, &ParseError{Message: fmt.Sprintf("missing %q header", csvHeader)}
	}
	if len(export.Samples) < MinSignalLength {
		return nil, &ValidationError{
			Field:   "samples",
			Message: fmt.Sprintf("need at least %d samples, got %d", MinSignalLength, len(export.Samples)),
		}
	}
	return export, nil
}

// Amplitudes projects the exported samples onto their amplitude values.
func (e *CSVExport) Amplitudes() []float64 {
	out := make([]float64, len(e.Samples))
	for i, s := range e.Samples {
		out[i] = s.Amplitude
	}
	return out
}

func (e *CSVExport) readMetadata(body string, lineNo int) error {
	key, value, ok := strings.Cut(body, ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)

	var err error
	switch strings.TrimSpace(key) {
	case "Export Date":
		e.ExportedAt, err = iso8601.ParseString(value)
	case "Total Samples":
		e.TotalSamples, err = strconv.Atoi(value)
	case "Current Amplitude":
		e.Stats.Amplitude, err = strconv.ParseFloat(value, 64)
	case "Current RMS":
		e.Stats.RMS, err = strconv.ParseFloat(value, 64)
	case "Peak-to-Peak":
		e.Stats.PeakToPeak, err = strconv.ParseFloat(value, 64)
	}
	if err != nil {
		return &ParseError{Line: lineNo, Message: fmt.Sprintf("invalid %s metadata", strings.TrimSpace(key))}
	}
	return nil
}
