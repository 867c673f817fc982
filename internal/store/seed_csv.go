package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"greencart/internal/model"
)

// SeedFromCSVDir imports legacy fleet exports: drivers.csv, routes.csv and
// orders.csv in one directory. Column layout follows the historical export
// format; past_week_hours is a pipe-separated list that is summed into the
// 7-day total. Missing files are skipped.
func SeedFromCSVDir(ctx context.Context, s Store, dir string) error {
	if err := seedDriversCSV(ctx, s, filepath.Join(dir, "drivers.csv")); err != nil {
		return err
	}
	if err := seedRoutesCSV(ctx, s, filepath.Join(dir, "routes.csv")); err != nil {
		return err
	}
	return seedOrdersCSV(ctx, s, filepath.Join(dir, "orders.csv"))
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("seed: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("seed: parse %q: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// col finds a header index; -1 when the column is absent.
func col(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func seedDriversCSV(ctx context.Context, s Store, path string) error {
	header, rows, err := readCSV(path)
	if err != nil || rows == nil {
		return err
	}
	name := col(header, "name")
	shift := col(header, "shift_hours")
	week := col(header, "past_week_hours")
	for i, row := range rows {
		d := model.Driver{Name: field(row, name), IsActive: true}
		if v := field(row, shift); v != "" {
			h, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("seed: drivers.csv row %d: shift_hours: %w", i+1, err)
			}
			d.CurrentShiftHours = h
		}
		// pipe-separated daily hours, summed
		if v := field(row, week); v != "" {
			total := 0.0
			for _, part := range strings.Split(v, "|") {
				h, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
				if err != nil {
					return fmt.Errorf("seed: drivers.csv row %d: past_week_hours: %w", i+1, err)
				}
				total += h
			}
			d.Past7DayWorkHours = total
		}
		if _, err := s.CreateDriver(ctx, d); err != nil {
			return fmt.Errorf("seed: drivers.csv row %d: %w", i+1, err)
		}
	}
	return nil
}

func seedRoutesCSV(ctx context.Context, s Store, path string) error {
	header, rows, err := readCSV(path)
	if err != nil || rows == nil {
		return err
	}
	id := col(header, "route_id")
	dist := col(header, "distance_km")
	traffic := col(header, "traffic_level")
	base := col(header, "base_time_min")
	for i, row := range rows {
		lvl, err := model.ParseTrafficLevel(field(row, traffic))
		if err != nil {
			return fmt.Errorf("seed: routes.csv row %d: %w", i+1, err)
		}
		rt := model.Route{ID: field(row, id), TrafficLevel: lvl, IsActive: true}
		if v := field(row, dist); v != "" {
			if rt.DistanceKm, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("seed: routes.csv row %d: distance_km: %w", i+1, err)
			}
		}
		if v := field(row, base); v != "" {
			if rt.BaseTimeMinutes, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("seed: routes.csv row %d: base_time_min: %w", i+1, err)
			}
		}
		if _, err := s.CreateRoute(ctx, rt); err != nil {
			return fmt.Errorf("seed: routes.csv row %d: %w", i+1, err)
		}
	}
	return nil
}

func seedOrdersCSV(ctx context.Context, s Store, path string) error {
	header, rows, err := readCSV(path)
	if err != nil || rows == nil {
		return err
	}
	id := col(header, "order_id")
	value := col(header, "value_rs")
	route := col(header, "route_id")
	for i, row := range rows {
		o := model.Order{
			ID:      field(row, id),
			RouteID: field(row, route),
		}
		if v := field(row, value); v != "" {
			if o.ValueRs, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("seed: orders.csv row %d: value_rs: %w", i+1, err)
			}
		}
		if _, err := s.CreateOrder(ctx, o); err != nil {
			return fmt.Errorf("seed: orders.csv row %d: %w", i+1, err)
		}
	}
	return nil
}
