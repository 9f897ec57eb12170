package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/repositories"
)

const exportDateLayout = "2006-01-02T15:04:05"

// exportRow is one CSV line of the staff order export.
type exportRow struct {
	OrderID     string `csv:"Order ID"`
	Date        string `csv:"Date"`
	Customer    string `csv:"Customer"`
	Phone       string `csv:"Phone"`
	FullAddress string `csv:"Full Address"`
	City        string `csv:"City"`
	State       string `csv:"State"`
	Pincode     string `csv:"Pincode"`
	Items       string `csv:"Items"`
	Total       string `csv:"Total"`
	Status      string `csv:"Status"`
	Courier     string `csv:"Courier"`
	Tracking    string `csv:"Tracking"`
}

// ExportOrders writes the orders selected by filter as CSV to w and returns the number of rows written.
func (s *orderService) ExportOrders(ctx context.Context, filter ExportFilter, w io.Writer) (int, error) {
	if w == nil {
		return 0, fmt.Errorf("%w: writer is required", ErrOrderInvalidInput)
	}
	repoFilter, err := s.exportFilter(filter)
	if err != nil {
		return 0, err
	}
	orders, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return 0, s.mapRepositoryError(err)
	}

	rows := make([]*exportRow, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, s.exportRow(order))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, fmt.Errorf("order export: write csv: %w", err)
	}
	return len(rows), nil
}

func (s *orderService) exportFilter(filter ExportFilter) (repositories.OrderListFilter, error) {
	scope := strings.ToLower(strings.TrimSpace(filter.Scope))
	switch scope {
	case "", ExportScopeAll:
		return repositories.OrderListFilter{}, nil
	case ExportScopeToday:
		from, to := s.dayBounds(s.now())
		return repositories.OrderListFilter{From: &from, To: &to}, nil
	case ExportScopeDate:
		day, err := s.parseDay(filter.Date)
		if err != nil {
			return repositories.OrderListFilter{}, err
		}
		from, to := s.dayBounds(day)
		return repositories.OrderListFilter{From: &from, To: &to}, nil
	case ExportScopeRange:
		first, err := s.parseDay(filter.From)
		if err != nil {
			return repositories.OrderListFilter{}, err
		}
		last, err := s.parseDay(filter.To)
		if err != nil {
			return repositories.OrderListFilter{}, err
		}
		if last.Before(first) {
			return repositories.OrderListFilter{}, userFacing(ErrOrderInvalidInput, "Export range ends before it starts")
		}
		from, _ := s.dayBounds(first)
		_, to := s.dayBounds(last)
		return repositories.OrderListFilter{From: &from, To: &to}, nil
	default:
		return repositories.OrderListFilter{}, userFacing(ErrOrderInvalidInput, "Unknown export scope: %s", filter.Scope)
	}
}

func (s *orderService) exportRow(order domain.Order) *exportRow {
	items := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, fmt.Sprintf("%s %skg", item.ProductName, item.QuantityKg.StringFixed(2)))
	}
	address := order.Address
	return &exportRow{
		OrderID:     order.ID,
		Date:        order.OrderDate.In(s.location).Format(exportDateLayout),
		Customer:    order.Customer.Name,
		Phone:       order.Customer.Phone,
		FullAddress: strings.Join([]string{address.FullName, address.AddressLine, address.City, address.State, address.Pincode}, ", "),
		City:        address.City,
		State:       address.State,
		Pincode:     address.Pincode,
		Items:       strings.Join(items, " | "),
		Total:       order.TotalAmount.StringFixed(2),
		Status:      string(order.Status),
		Courier:     order.CourierName,
		Tracking:    order.TrackingID,
	}
}
