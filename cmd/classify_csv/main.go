package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"vibration-monitor/classifier"
	"vibration-monitor/utils"
	"vibration-monitor/vibration"
)

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "Signal file: an exported CSV or comma/whitespace separated numbers")
	endpoint := flag.String("url", utils.GetEnv("CLASSIFIER_URL", ""), "Classification service URL (empty uses the built-in heuristic)")
	rate := flag.Float64("rate", vibration.DefaultSamplingRate, "Sampling rate (Hz)")
	timeout := flag.Duration("timeout", 30*time.Second, "Classification timeout")
	flag.Parse()

	if *file == "" {
		log.Fatal("Usage: go run ./cmd/classify_csv -file <signal.csv> [-url http://localhost:8000]")
	}

	signal, err := readSignal(*file)
	if err != nil {
		log.Fatalf("failed to read signal: %v", err)
	}

	var c classifier.Classifier
	if *endpoint == "" {
		c = classifier.NewHeuristic(*rate)
	} else {
		c = classifier.NewRemote(*endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := c.Classify(ctx, signal)
	if err != nil {
		log.Fatalf("classification failed: %v", err)
	}

	fmt.Printf("→ %s (%d samples)\n", *file, len(signal))
	fmt.Printf("   prediction=%s confidence=%.1f%%\n\n", result.Prediction, result.Confidence*100)

	fmt.Println("Probabilities:")
	for _, label := range classifier.SortedKeys(result.Probabilities) {
		fmt.Printf("  %-12s %6.2f%%\n", label, result.Probabilities[label]*100)
	}

	timeDomain, freqDomain := classifier.SplitFeatures(result.Features)
	printFeatures("Time-domain features", timeDomain)
	printFeatures("Frequency-domain features", freqDomain)
}

func readSignal(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if export, err := vibration.ReadCSV(f); err == nil {
		fmt.Printf("Exported %s, %d samples\n", export.ExportedAt.Format(time.RFC3339), export.TotalSamples)
		return export.Amplitudes(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vibration.ParseSignal(string(raw))
}

func printFeatures(title string, features map[string]float64) {
	fmt.Printf("\n%s:\n", title)
	for _, key := range classifier.SortedKeys(features) {
		fmt.Printf("  %-18s %.6f\n", key, features[key])
	}
}
