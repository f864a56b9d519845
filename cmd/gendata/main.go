package main

import (
	"flag"
	"fmt"
	"log"

	"DemandCast/internal/services/dataset"
)

func main() {
	out := flag.String("out", "data/training_data.csv", "output CSV path")
	n := flag.Int("n", 10000, "number of rows")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *n < 1 {
		log.Fatalf("n must be positive, got %d", *n)
	}

	t := dataset.GenerateSynthetic(*n, *seed)
	if err := dataset.WriteCSVFile(*out, t); err != nil {
		log.Fatalf("write dataset: %v", err)
	}

	stats := dataset.ComputeStatistics(t)
	fmt.Printf("Generated %d records in %s\n", stats.TotalRecords, *out)
	if stats.Demand != nil {
		fmt.Printf("  demand mean %.2f  min %.0f  max %.0f\n", stats.Demand.Mean, stats.Demand.Min, stats.Demand.Max)
	}
	if stats.Promotions != nil {
		fmt.Printf("  promotions %d (%.1f%%)\n", stats.Promotions.Active, stats.Promotions.Percentage)
	}
}
