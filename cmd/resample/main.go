// Command resample aggregates a daily CSV into fixed N-day bars.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
	"github.com/kvh-4114/trade-strategies-sub001/services/loader"
)

func main() {
	in := flag.String("in", "", "Input daily CSV (date,open,high,low,close,volume)")
	out := flag.String("out", "", "Output CSV path")
	days := flag.Int("days", 4, "Bucket length in days")
	flag.Parse()

	if *in == "" || *out == "" {
		log.Fatal("-in and -out are required")
	}

	daily, err := loader.ReadFile(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}
	agg, err := engine.AggregateBars(daily, *days, engine.EpochOrigin)
	if err != nil {
		log.Fatalf("aggregate: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "date,open,high,low,close,volume")
	for _, b := range agg {
		fmt.Fprintf(w, "%s,%.8f,%.8f,%.8f,%.8f,%.8f\n",
			b.Timestamp.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("wrote %d bars to %s", len(agg), *out)
}
