package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"vibration-monitor/classifier"
	"vibration-monitor/db"
	"vibration-monitor/vibration"
)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "Optional directory of signal files (normal.csv, fault_ball.csv, ...) to import instead of synthesizing")
	length := flag.Int("n", 2400, "Samples per synthetic example")
	rate := flag.Int("rate", vibration.DefaultSamplingRate, "Sampling rate (Hz)")
	seed := flag.Int64("seed", 42, "Random seed for synthetic noise")
	flag.Parse()

	ctx := context.Background()
	store, err := db.NewExampleStore(ctx)
	if err != nil {
		log.Fatalf("failed to open example store: %v", err)
	}
	defer store.Close()

	rng := rand.New(rand.NewSource(*seed))
	stored := 0
	for _, category := range db.Categories {
		var (
			signal []float64
			source string
		)
		if *dir != "" {
			path := filepath.Join(*dir, fileNameFor(category))
			signal, err = loadSignalFile(path)
			if err != nil {
				log.Printf("  %-18s ✗ %v\n", category, err)
				continue
			}
			source = path
		} else {
			signal, err = synthesize(category, *length, float64(*rate), rng)
			if err != nil {
				log.Printf("  %-18s ✗ %v\n", category, err)
				continue
			}
			source = "synthetic"
		}

		if err := store.StoreExample(ctx, db.Example{
			Category:     category,
			Signal:       signal,
			SamplingRate: *rate,
			Source:       source,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			log.Fatalf("failed to store %s: %v", category, err)
		}
		stored++
		log.Printf("  %-18s ✓ %d samples (%s)\n", category, len(signal), source)
	}

	if stored == 0 {
		log.Fatalf("no examples were stored")
	}

	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("Stored %d/%d example categories\n", stored, len(db.Categories))
	log.Println("Next steps:")
	log.Println("   go run . serve -proto http -p 5000")
	log.Println(strings.Repeat("=", 60))
}

// synthesize builds a tone at the class defect frequency with its second
// harmonic and a little Gaussian noise.
func synthesize(category string, n int, rate float64, rng *rand.Rand) ([]float64, error) {
	label := strings.TrimPrefix(category, "fault/")
	freq, ok := classifier.FaultFrequency(label)
	if !ok {
		return nil, fmt.Errorf("no defect frequency for %q", category)
	}

	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / rate
		signal[i] = math.Sin(2*math.Pi*freq*t) +
			0.3*math.Sin(2*math.Pi*2*freq*t) +
			0.1*rng.NormFloat64()
	}
	return signal, nil
}

func fileNameFor(category string) string {
	return strings.ReplaceAll(category, "/", "_") + ".csv"
}

// loadSignalFile accepts either an exported CSV or a bare list of numbers.
func loadSignalFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if export, err := vibration.ReadCSV(f); err == nil {
		return export.Amplitudes(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vibration.ParseSignal(string(raw))
}
