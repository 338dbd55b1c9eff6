package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/geodeza/mapmeasure/internal/geo"
	"github.com/geodeza/mapmeasure/internal/measure"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in" description:"Input CSV file path (name,lat,lng[,type]). Reads from stdin if empty"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"geojson" choice:"yaml" default:"geojson"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var input io.Reader = os.Stdin
	if opts.Input != "" {
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
		input = bytes.NewReader(data)
	}

	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var locations []geo.Location
	count := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading CSV: %v\n", err)
			os.Exit(1)
		}

		if len(record) < 3 {
			fmt.Fprintf(os.Stderr, "Skipping short record: %v\n", record)
			continue
		}

		// Header line tolerated
		if count == 0 && strings.EqualFold(record[1], "lat") {
			continue
		}

		name := record[0]
		lat, err1 := strconv.ParseFloat(record[1], 64)
		lng, err2 := strconv.ParseFloat(record[2], 64)
		if err1 != nil || err2 != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s due to invalid coords: %s, %s\n", name, record[1], record[2])
			continue
		}

		// Same boundary rules as the measurement API
		if _, err := measure.NewPoint(lat, lng); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", name, err)
			continue
		}

		typeStr := ""
		if len(record) > 3 {
			typeStr = strings.ToLower(record[3])
		}

		locations = append(locations, geo.Location{
			Name: name,
			Lat:  lat,
			Lng:  lng,
			Type: typeStr,
		})
		count++
	}

	// marshal
	var outputData []byte
	var err error
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(locations)
	} else {
		outputData, err = json.MarshalIndent(geo.LocationsCollection(locations), "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d locations to %s (format: %s)\n", count, opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
