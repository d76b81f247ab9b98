package repository

import "net/http"

// RoundTripperFunc allows us to easily mock http.Client responses in tests.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

const londonJSON = `{
	"name": "London",
	"sys": {"country": "GB", "sunrise": 1700000000, "sunset": 1700040000},
	"main": {"temp": 15.0, "humidity": 70},
	"wind": {"speed": 4.1},
	"weather": [{"id": 804, "main": "Clouds", "description": "overcast clouds", "icon": "04n"}]
}`
