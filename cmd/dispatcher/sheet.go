package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/skm-mango/storefront/internal/dispatch"
)

// sheetRow is one line of the staff dispatch sheet.
type sheetRow struct {
	OrderID     string `csv:"order_id"`
	Selected    string `csv:"selected"`
	CourierName string `csv:"courier_name"`
	TrackingID  string `csv:"tracking_id"`
}

func readSheet(r io.Reader) ([]sheetRow, error) {
	var rows []sheetRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dispatch sheet: %w", err)
	}
	return rows, nil
}

// applySheet copies sheet rows onto loaded orders in sheet order. Rows for orders that are not
// CONFIRMED are skipped and reported.
func applySheet(coord *dispatch.Coordinator, rows []sheetRow, logger *zap.Logger) (applied int, skipped []string) {
	for _, row := range rows {
		id := strings.TrimSpace(row.OrderID)
		if id == "" {
			continue
		}
		if err := applyRow(coord, id, row); err != nil {
			logger.Warn("skipping sheet row", zap.String("order_id", id), zap.Error(err))
			skipped = append(skipped, id)
			continue
		}
		applied++
	}
	return applied, skipped
}

// applyRow stops at the first rejected field.
func applyRow(coord *dispatch.Coordinator, id string, row sheetRow) error {
	if err := coord.SetCourier(id, row.CourierName); err != nil {
		return err
	}
	if err := coord.SetTracking(id, row.TrackingID); err != nil {
		return err
	}
	return coord.Select(id, isSelected(row.Selected))
}

// isSelected accepts the usual boolean spellings plus the marks staff type into spreadsheets.
func isSelected(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "y", "yes", "x":
		return true
	}
	return cast.ToBool(raw)
}
