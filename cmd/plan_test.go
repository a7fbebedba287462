package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoroute/route"
	"motoroute/route/offline"
)

func TestParseCSVToWaypoints(t *testing.T) {
	rows := [][]string{
		{"lat", "lng", "address"},
		{"30.0", "-90.0", "New Orleans"},
		{" 30.5 ", "-90.5"},
	}
	wps, err := ParseCSVToWaypoints(rows)
	require.NoError(t, err)
	require.Len(t, wps, 2)
	assert.Equal(t, 1, wps[0].Order)
	assert.Equal(t, 2, wps[1].Order)
	assert.Equal(t, "New Orleans", wps[0].Address)
	assert.Equal(t, 30.5, wps[1].Position.Lat)
	assert.NotEmpty(t, wps[0].ID)
}

func TestParseCSVToWaypointsErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{"empty", nil},
		{"columns", [][]string{{"h"}, {"1"}}},
		{"latitude", [][]string{{"h"}, {"north", "1"}}},
		{"range", [][]string{{"h"}, {"91", "0"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSVToWaypoints(tc.rows)
			assert.Error(t, err)
		})
	}
}

func TestPlanOutput(t *testing.T) {
	wps, err := ParseCSVToWaypoints([][]string{
		{"lat", "lng", "address"},
		{"30.0", "-90.0", "A"},
		{"30.5", "-90.5", "B"},
		{"31.0", "-91.0", "C"},
	})
	require.NoError(t, err)

	summary, err := route.NewAggregator(offline.NewRouter()).ComputeRoute(context.Background(), wps, false)
	require.NoError(t, err)

	var out bytes.Buffer
	PrintSummary(&out, summary)
	assert.Contains(t, out.String(), "Leg 1:")
	assert.Contains(t, out.String(), "over 2 legs")

	var buf bytes.Buffer
	require.NoError(t, WriteLegsCSV(&buf, summary))
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "leg", records[0][0])
	assert.Equal(t, "2", records[2][0])
}
