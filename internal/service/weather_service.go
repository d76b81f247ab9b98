package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/model"
	"github.com/fakhrymubarak/weather-gateway/internal/repository"
	"github.com/sourcegraph/conc/pool"
)

var (
	ErrWeatherService = errors.New("weather service error")
	ErrMissingCity    = errors.New("missing city")
)

type WeatherServiceInterface interface {
	Home() *model.HomePage
	GetCurrent(ctx context.Context, query model.WeatherQuery) (*model.WeatherDisplay, error)
	Compare(ctx context.Context, city1, city2, units string) (*model.WeatherComparison, error)
}

type WeatherService struct {
	WeatherRepo repository.WeatherRepository
	Location    *time.Location
	Now         func() time.Time
}

// NewWeatherService builds a service rendering sunrise and sunset in loc (time.Local when nil).
func NewWeatherService(repo repository.WeatherRepository, loc *time.Location) *WeatherService {
	if loc == nil {
		loc = time.Local
	}
	return &WeatherService{
		WeatherRepo: repo,
		Location:    loc,
		Now:         time.Now,
	}
}

func (s *WeatherService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *WeatherService) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// Home returns the date picker bounds, computed on every call.
func (s *WeatherService) Home() *model.HomePage {
	now := s.now()
	return &model.HomePage{
		MinDate: now.Add(-historyWindow),
		MaxDate: now,
	}
}

func (s *WeatherService) fetch(ctx context.Context, param string, query model.WeatherQuery) (*model.OpenWeatherMapResponse, error) {
	if strings.TrimSpace(query.City) == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCity, param)
	}
	data, err := s.WeatherRepo.GetCurrentWeather(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", ErrWeatherService, param, query.City, err)
	}
	return data, nil
}

// GetCurrent fetches one city and formats it for the results page.
func (s *WeatherService) GetCurrent(ctx context.Context, query model.WeatherQuery) (*model.WeatherDisplay, error) {
	data, err := s.fetch(ctx, "city", query)
	if err != nil {
		return nil, err
	}
	return newWeatherDisplay(data, query.Units, s.now(), s.location()), nil
}

// Compare fetches both cities concurrently with the same units. The first
// failure cancels the other lookup.
func (s *WeatherService) Compare(ctx context.Context, city1, city2, units string) (*model.WeatherComparison, error) {
	var data1, data2 *model.OpenWeatherMapResponse

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		data1, err = s.fetch(ctx, "city1", model.WeatherQuery{City: city1, Units: units})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		data2, err = s.fetch(ctx, "city2", model.WeatherQuery{City: city2, Units: units})
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	now, loc := s.now(), s.location()
	return &model.WeatherComparison{
		City1: newCityComparison(data1, units, now, loc),
		City2: newCityComparison(data2, units, now, loc),
	}, nil
}
