package service

import (
	"time"

	"github.com/fakhrymubarak/weather-gateway/internal/model"
)

const (
	iconBaseURL = "https://openweathermap.org/img/wn/"
	dateLayout  = "Monday January 02, 2006"
	clockLayout = "15:04"

	// historyWindow is how far back the home page date picker reaches.
	historyWindow = 5 * 24 * time.Hour
)

// LetterForUnits returns the shorthand temperature letter for an OpenWeatherMap units value.
func LetterForUnits(units string) string {
	switch units {
	case "imperial":
		return "F"
	case "metric":
		return "C"
	default:
		return "K"
	}
}

// IconURL returns the absolute URL of an OpenWeatherMap condition icon.
func IconURL(code string) string {
	return iconBaseURL + code + ".png"
}

// FormatDate renders t as e.g. "Tuesday November 14, 2023".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatClock renders a Unix timestamp as 24-hour "HH:MM" in loc.
func FormatClock(unix int64, loc *time.Location) string {
	return time.Unix(unix, 0).In(loc).Format(clockLayout)
}

func newWeatherDisplay(data *model.OpenWeatherMapResponse, units string, now time.Time, loc *time.Location) *model.WeatherDisplay {
	cond := data.Weather[0]
	return &model.WeatherDisplay{
		Date:        FormatDate(now),
		City:        data.Name,
		Description: cond.Description,
		Degrees:     data.Main.Temp,
		Humidity:    data.Main.Humidity,
		WindSpeed:   data.Wind.Speed,
		Sunrise:     FormatClock(data.Sys.Sunrise, loc),
		Sunset:      FormatClock(data.Sys.Sunset, loc),
		Units:       LetterForUnits(units),
		Icon:        IconURL(cond.Icon),
	}
}

func newCityComparison(data *model.OpenWeatherMapResponse, units string, now time.Time, loc *time.Location) *model.CityComparison {
	cond := data.Weather[0]
	return &model.CityComparison{
		Date:        FormatDate(now),
		City:        data.Name,
		Description: cond.Description,
		Degrees:     data.Main.Temp,
		Humidity:    data.Main.Humidity,
		WindSpeed:   data.Wind.Speed,
		Sunrise:     time.Unix(data.Sys.Sunrise, 0).In(loc),
		SunsetHour:  time.Unix(data.Sys.Sunset, 0).In(loc).Hour(),
		Units:       LetterForUnits(units),
		Icon:        IconURL(cond.Icon),
	}
}
