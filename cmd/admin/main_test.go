package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReports_ShowAllTimeTotals: the report listing carries, per reported
// user, the count of every report against them, old ones included.
func TestReports_ShowAllTimeTotals(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := storagetest.NewService(t)
	old := time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, s.DB.Create(&[]models.Report{
		{ReporterID: 1, ReportedID: 9, Tag: "spam", CreatedAt: old},
		{ReporterID: 2, ReportedID: 9, Tag: "abuse"},
		{ReporterID: 3, ReportedID: 8, Tag: "spam"},
	}).Error)
	recent, err := s.ListReports(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Act
	totals, err := reportTotals(ctx, s, recent)
	require.NoError(t, err)
	var out bytes.Buffer
	printReports(&out, recent, totals)

	// Assert
	assert.Equal(t, map[int64]int64{9: 2, 8: 1}, totals)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "REPORTER", "REPORTED", "TOTAL", "TAG", "CREATED_AT"}, strings.Fields(lines[0]))
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		switch fields[2] {
		case "9":
			assert.Equal(t, "2", fields[3])
		case "8":
			assert.Equal(t, "1", fields[3])
		default:
			t.Fatalf("unexpected row %q", line)
		}
	}
}

func TestRunCommand_RejectsBadArguments(t *testing.T) {
	s := storagetest.NewService(t)

	assert.Error(t, runCommand(context.Background(), s, nil, "reports", []string{"-3"}))
	assert.Error(t, runCommand(context.Background(), s, nil, "ban", nil))
	assert.Error(t, runCommand(context.Background(), s, nil, "nope", nil))
}
