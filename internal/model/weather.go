package model

import "time"

// WeatherQuery is what a results page asks the upstream for. Units is the raw
// query value and is forwarded as-is.
type WeatherQuery struct {
	City  string
	Units string
}

// WeatherDisplay is the render context of the single-city results page.
type WeatherDisplay struct {
	Date        string
	City        string
	Description string
	Degrees     float64
	Humidity    int
	WindSpeed   float64
	Sunrise     string
	Sunset      string
	Units       string
	Icon        string
}

// CityComparison is one side of the comparison page. Sunrise is the raw local
// time and SunsetHour the bare local hour.
type CityComparison struct {
	Date        string
	City        string
	Description string
	Degrees     float64
	Humidity    int
	WindSpeed   float64
	Sunrise     time.Time
	SunsetHour  int
	Units       string
	Icon        string
}

type WeatherComparison struct {
	City1 *CityComparison
	City2 *CityComparison
}

// HomePage bounds the date picker on the landing page.
type HomePage struct {
	MinDate time.Time
	MaxDate time.Time
}

// ErrorPage is rendered for every failed request. Message never carries upstream detail.
type ErrorPage struct {
	Status  int
	Title   string
	Message string
}
