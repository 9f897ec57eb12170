package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skm-mango/storefront/internal/client"
	"github.com/skm-mango/storefront/internal/dispatch"
	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/platform/config"
)

func defaultsForTest() config.ClientConfig {
	return config.ClientConfig{Concurrency: 4, OrderTimeout: time.Second}
}

func TestReadSheet(t *testing.T) {
	t.Parallel()

	raw := "order_id,selected,courier_name,tracking_id\n" +
		"o-1,yes,Blue Dart,BD1\n" +
		"o-2,,DTDC,\n"
	rows, err := readSheet(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, []sheetRow{
		{OrderID: "o-1", Selected: "yes", CourierName: "Blue Dart", TrackingID: "BD1"},
		{OrderID: "o-2", CourierName: "DTDC"},
	}, rows)
}

func TestReadSheetEmpty(t *testing.T) {
	t.Parallel()

	rows, err := readSheet(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestApplySheet(t *testing.T) {
	t.Parallel()

	coord := dispatch.NewCoordinator(nil)
	coord.Load([]domain.Order{
		{ID: "o-1", Status: domain.OrderStatusConfirmed},
		{ID: "o-2", Status: domain.OrderStatusConfirmed},
		{ID: "o-3", Status: domain.OrderStatusShipped},
	})

	rows := []sheetRow{
		{OrderID: "o-2", Selected: "x", CourierName: "DTDC", TrackingID: "D2"},
		{OrderID: "o-3", Selected: "true", CourierName: "DTDC", TrackingID: "D3"},
		{OrderID: " "},
		{OrderID: "o-1", Selected: "TRUE", CourierName: "Blue Dart", TrackingID: "BD1"},
	}
	applied, skipped := applySheet(coord, rows, zap.NewNop())
	require.Equal(t, 2, applied)
	require.Equal(t, []string{"o-3"}, skipped)

	selected := coord.Selected()
	require.Len(t, selected, 2)
	require.Equal(t, "o-2", selected[0].Order.ID)
	require.Equal(t, "D2", selected[0].TrackingID)
	require.Equal(t, "o-1", selected[1].Order.ID)
	require.Equal(t, "Blue Dart", selected[1].CourierName)
}

func TestApplyRowReportsUnknownOrder(t *testing.T) {
	t.Parallel()

	coord := dispatch.NewCoordinator(nil)
	coord.Load([]domain.Order{{ID: "o-1", Status: domain.OrderStatusConfirmed}})

	err := applyRow(coord, "o-9", sheetRow{OrderID: "o-9", Selected: "yes", CourierName: "DTDC", TrackingID: "D9"})
	require.ErrorIs(t, err, dispatch.ErrUnknownOrder)
	require.Empty(t, coord.Selected())

	require.NoError(t, applyRow(coord, "o-1", sheetRow{OrderID: "o-1", Selected: "yes", CourierName: "DTDC", TrackingID: "D1"}))
	selected := coord.Selected()
	require.Len(t, selected, 1)
	require.True(t, selected[0].Ready())
}

func TestIsSelected(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"y", "Yes", " X ", "1", "true", "T"} {
		require.True(t, isSelected(raw), raw)
	}
	for _, raw := range []string{"", "no", "0", "false", "maybe"} {
		require.False(t, isSelected(raw), raw)
	}
}

func TestReportExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary dispatch.Summary
		err     error
		code    int
		output  string
	}{
		{
			name: "all shipped",
			summary: dispatch.Summary{Succeeded: 1, Outcomes: []dispatch.Outcome{
				{OrderID: "o-1", Stage: dispatch.StageDone},
			}},
			code:   exitOK,
			output: "o-1\tshipped",
		},
		{
			name: "partial failure",
			summary: dispatch.Summary{Succeeded: 1, Failed: 1, Outcomes: []dispatch.Outcome{
				{OrderID: "o-1", Stage: dispatch.StageDone},
				{OrderID: "o-2", Stage: dispatch.StageStatus, Err: context.DeadlineExceeded},
			}},
			code:   exitFailures,
			output: "o-2\tfailed at status: timed out",
		},
		{
			name: "api message",
			summary: dispatch.Summary{Failed: 1, Outcomes: []dispatch.Outcome{
				{OrderID: "o-3", Stage: dispatch.StageCourier, Err: &client.APIError{Status: 409, Code: "invalid_state", Message: "order already shipped"}},
			}},
			code:   exitFailures,
			output: "failed at courier: order already shipped",
		},
		{
			name:   "incomplete",
			err:    &dispatch.IncompleteSelectionError{Count: 1, OrderIDs: []string{"o-4"}},
			code:   exitAborted,
			output: "need a courier name and tracking id: o-4",
		},
		{
			name:   "nothing selected",
			err:    dispatch.ErrNothingSelected,
			code:   exitAborted,
			output: "nothing selected",
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			code:   exitFailures,
			output: "dispatch failed: boom",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			require.Equal(t, tc.code, report(&out, tc.summary, tc.err))
			require.Contains(t, out.String(), tc.output)
		})
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	_, err := parseFlags(nil, defaultsForTest())
	require.EqualError(t, err, "-sheet is required")

	opts, err := parseFlags([]string{"-sheet", "today.csv", "-quick-fill", " Blue Dart "}, defaultsForTest())
	require.NoError(t, err)
	require.Equal(t, "today.csv", opts.sheet)
	require.Equal(t, "Blue Dart", opts.quickFill)
	require.Equal(t, 4, opts.concurrency)

	_, err = parseFlags([]string{"-sheet", "a.csv", "-concurrency", "0"}, defaultsForTest())
	require.Error(t, err)
}
