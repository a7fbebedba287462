package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"motoroute/config"
	"motoroute/route"
	"motoroute/waypoint"
	"motoroute/web"
)

var inputPath string
var outputPath string

func planCmd() *cobra.Command {
	var avoidHighways bool
	var provider string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "compute a route from a CSV of waypoints",
		Long: `read waypoints (lat,lng,address) from a CSV file with a header row, route them in order
and print each leg with the totals. With --output the legs are also written as CSV.`,
		Example: `motoroute plan --input waypoints.csv --output legs.csv --avoid-highways`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return cmd.Help()
			}

			inputFile, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer func(inputFile *os.File) {
				if err := inputFile.Close(); err != nil {
					log.Printf("Failed to close input file: %v", err)
				}
			}(inputFile)

			csvContent, err := csv.NewReader(inputFile).ReadAll()
			if err != nil {
				return err
			}
			wps, err := ParseCSVToWaypoints(csvContent)
			if err != nil {
				return fmt.Errorf("failed to parse CSV: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Routing.Provider = provider
			}
			router, err := web.NewRouter(cfg.Routing)
			if err != nil {
				return err
			}

			summary, err := route.NewAggregator(router).ComputeRoute(context.Background(), wps, avoidHighways)
			if err != nil {
				return err
			}
			PrintSummary(cmd.OutOrStdout(), summary)

			if outputPath == "" {
				return nil
			}
			outputFile, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer func(outputFile *os.File) {
				if err := outputFile.Close(); err != nil {
					log.Printf("Failed to close output file: %v", err)
				}
			}(outputFile)
			return WriteLegsCSV(outputFile, summary)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "csv input file path (required)")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		log.Fatal(err)
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "csv output file path for the legs")
	cmd.Flags().BoolVar(&avoidHighways, "avoid-highways", false, "route around highways")
	cmd.Flags().StringVar(&provider, "router", "", "routing provider (offline, osrm, gmaps); defaults to ROUTING_PROVIDER")

	return cmd
}

// ParseCSVToWaypoints parses rows of lat,lng[,address] after a header row into ordered waypoints.
func ParseCSVToWaypoints(csvContent [][]string) ([]waypoint.Waypoint, error) {
	if len(csvContent) == 0 {
		return nil, fmt.Errorf("CSV is empty")
	}

	// skip the header row
	dataRows := csvContent[1:]

	list := waypoint.NewList()
	for i, row := range dataRows {
		if len(row) < 2 || len(row) > 3 {
			return nil, fmt.Errorf("row %d: expected 2 or 3 columns, but got %d", i+2, len(row)) // +2 to account for the header row
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to convert latitude '%s': %w", i+2, row[0], err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to convert longitude '%s': %w", i+2, row[1], err)
		}
		pos := waypoint.Position{Lat: lat, Lng: lng}
		if !pos.Valid() {
			return nil, fmt.Errorf("row %d: position %s is out of range", i+2, pos)
		}
		address := ""
		if len(row) == 3 {
			address = strings.TrimSpace(row[2])
		}
		list.Add(pos, address)
	}
	return list.Waypoints(), nil
}

func PrintSummary(w io.Writer, summary *route.Summary) {
	for _, leg := range summary.Legs {
		fmt.Fprintf(w, "Leg %d: %s -> %s  %s, %s\n", leg.Number, leg.StartAddress, leg.EndAddress, leg.Distance, leg.Duration)
	}
	fmt.Fprintf(w, "Total: %s, %s over %d legs\n", summary.TotalDistance, summary.TotalDuration, summary.LegCount)
}

func WriteLegsCSV(w io.Writer, summary *route.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"leg", "start", "end", "distance", "duration", "distance_m", "duration_s"}); err != nil {
		return err
	}
	for _, leg := range summary.Legs {
		if err := cw.Write([]string{
			strconv.Itoa(leg.Number),
			leg.StartAddress,
			leg.EndAddress,
			leg.Distance,
			leg.Duration,
			strconv.Itoa(leg.DistanceValue),
			strconv.Itoa(leg.DurationValue),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
