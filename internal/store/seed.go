package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"greencart/internal/model"
)

// Seed fixture schema. Enum-typed fields come in as raw strings and are
// validated through the model parsers before anything is persisted.
type seedFile struct {
	Drivers []struct {
		ID                string  `yaml:"id"`
		Name              string  `yaml:"name"`
		CurrentShiftHours float64 `yaml:"currentShiftHours"`
		Past7DayWorkHours float64 `yaml:"past7DayWorkHours"`
		LastWorkDate      string  `yaml:"lastWorkDate"`
		IsActive          *bool   `yaml:"isActive"`
	} `yaml:"drivers"`
	Routes []struct {
		ID              string  `yaml:"id"`
		Name            string  `yaml:"name"`
		DistanceKm      float64 `yaml:"distanceKm"`
		TrafficLevel    string  `yaml:"trafficLevel"`
		BaseTimeMinutes float64 `yaml:"baseTimeMinutes"`
		StartLocation   string  `yaml:"startLocation"`
		EndLocation     string  `yaml:"endLocation"`
		IsActive        *bool   `yaml:"isActive"`
	} `yaml:"routes"`
	Orders []struct {
		ID              string  `yaml:"id"`
		ValueRs         float64 `yaml:"valueRs"`
		RouteID         string  `yaml:"routeId"`
		Status          string  `yaml:"status"`
		Priority        string  `yaml:"priority"`
		CustomerName    string  `yaml:"customerName"`
		CustomerAddress string  `yaml:"customerAddress"`
	} `yaml:"orders"`
}

// SeedFromYAML loads demo fixtures into the store. Intended for first-run
// and local development; records are inserted in file order so simulation
// enumeration matches the fixture.
func SeedFromYAML(ctx context.Context, s Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("seed: parse %q: %w", path, err)
	}

	for i, d := range f.Drivers {
		drv := model.Driver{
			ID:                d.ID,
			Name:              d.Name,
			CurrentShiftHours: d.CurrentShiftHours,
			Past7DayWorkHours: d.Past7DayWorkHours,
			IsActive:          d.IsActive == nil || *d.IsActive,
		}
		if d.LastWorkDate != "" {
			t, err := time.Parse("2006-01-02", d.LastWorkDate)
			if err != nil {
				return fmt.Errorf("seed: driver %d: lastWorkDate: %w", i, err)
			}
			drv.LastWorkDate = &t
		}
		if _, err := s.CreateDriver(ctx, drv); err != nil {
			return fmt.Errorf("seed: driver %d: %w", i, err)
		}
	}

	for i, r := range f.Routes {
		traffic, err := model.ParseTrafficLevel(r.TrafficLevel)
		if err != nil {
			return fmt.Errorf("seed: route %d: %w", i, err)
		}
		rt := model.Route{
			ID:              r.ID,
			Name:            r.Name,
			DistanceKm:      r.DistanceKm,
			TrafficLevel:    traffic,
			BaseTimeMinutes: r.BaseTimeMinutes,
			StartLocation:   r.StartLocation,
			EndLocation:     r.EndLocation,
			IsActive:        r.IsActive == nil || *r.IsActive,
		}
		if _, err := s.CreateRoute(ctx, rt); err != nil {
			return fmt.Errorf("seed: route %d: %w", i, err)
		}
	}

	for i, o := range f.Orders {
		ord := model.Order{
			ID:              o.ID,
			ValueRs:         o.ValueRs,
			RouteID:         o.RouteID,
			CustomerName:    o.CustomerName,
			CustomerAddress: o.CustomerAddress,
		}
		if o.Status != "" {
			st, err := model.ParseOrderStatus(o.Status)
			if err != nil {
				return fmt.Errorf("seed: order %d: %w", i, err)
			}
			ord.Status = st
		}
		if o.Priority != "" {
			pr, err := model.ParsePriority(o.Priority)
			if err != nil {
				return fmt.Errorf("seed: order %d: %w", i, err)
			}
			ord.Priority = pr
		}
		if _, err := s.CreateOrder(ctx, ord); err != nil {
			return fmt.Errorf("seed: order %d: %w", i, err)
		}
	}

	return nil
}
