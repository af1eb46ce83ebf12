package vibration

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestWriteCSVHeader(t *testing.T) {
	t.Parallel()

	samples := []Sample{{Time: 0, Amplitude: 0.5}, {Time: 0.001, Amplitude: -0.25}}
	stats := StatSnapshot{Amplitude: 0.25, RMS: 0.39528, PeakToPeak: 0.75}
	exportedAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	var out bytes.Buffer
	if err := WriteCSV(&out, samples, stats, exportedAt); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := strings.Join([]string{
		"# Vibration Fault Detection System - Streaming Data Export",
		"# Export Date: 2024-05-06T07:08:09Z",
		"# Total Samples: 2",
		"# Current Amplitude: 0.2500",
		"# Current RMS: 0.3953",
		"# Peak-to-Peak: 0.7500",
		"#",
		"# Data Format: Time (seconds), Amplitude",
		"Time,Amplitude",
		"0,0.5",
		"0.001,-0.25",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	samples := make([]Sample, 120)
	for i := range samples {
		samples[i] = Sample{Time: float64(i) / 1000, Amplitude: float64(i%10) - 4.5}
	}
	exportedAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	var out bytes.Buffer
	if err := WriteCSV(&out, samples, StatSnapshot{RMS: 1.5}, exportedAt); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	export, err := ReadCSV(&out)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !export.ExportedAt.Equal(exportedAt) {
		t.Errorf("ExportedAt = %v, want %v", export.ExportedAt, exportedAt)
	}
	if export.TotalSamples != 120 || export.Stats.RMS != 1.5 {
		t.Errorf("metadata = %d samples, rms %f", export.TotalSamples, export.Stats.RMS)
	}
	if diff := cmp.Diff(samples, export.Samples); diff != "" {
		t.Fatalf("samples mismatch (-want +got):\n%s", diff)
	}
	if len(export.Amplitudes()) != 120 {
		t.Fatalf("Amplitudes() returned %d values", len(export.Amplitudes()))
	}
}

func TestReadCSVRejectsMalformedRow(t *testing.T) {
	t.Parallel()

	input := "Time,Amplitude\n0,1\nnot-a-row\n"
	_, err := ReadCSV(strings.NewReader(input))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("ReadCSV error = %v, want *ParseError", err)
	}
	if parseErr.Line != 3 {
		t.Fatalf("ParseError.Line = %d, want 3", parseErr.Line)
	}
}

func TestParseSignal(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sep := ","
		if i%3 == 0 {
			sep = "\n"
		}
		fmt.Fprintf(&sb, "%d%s", i, sep)
	}
	sb.WriteString("abc NaN +Inf 100")

	signal, err := ParseSignal(sb.String())
	if err != nil {
		t.Fatalf("ParseSignal: %v", err)
	}
	if len(signal) != 101 {
		t.Fatalf("got %d values, want 101", len(signal))
	}
	if signal[0] != 0 || signal[100] != 100 {
		t.Fatalf("values out of order: first=%f last=%f", signal[0], signal[100])
	}
}

func TestParseSignalErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseSignal(" \n ,, ")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("empty input error = %v, want *ParseError", err)
	}

	_, err = ParseSignal("1,2,3")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("short input error = %v, want *ValidationError", err)
	}
}
