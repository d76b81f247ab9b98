package model

// OpenWeatherMapResponse is the subset of the /data/2.5/weather payload the gateway reads.
// Sys, Main and Wind are pointers so a payload without them can be told apart from zero values.
type OpenWeatherMapResponse struct {
	Name    string               `json:"name"`
	Sys     *OpenWeatherMapSys   `json:"sys"`
	Main    *OpenWeatherMapMain  `json:"main"`
	Wind    *OpenWeatherMapWind  `json:"wind"`
	Weather []OpenWeatherMapCond `json:"weather"`
}

type OpenWeatherMapSys struct {
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

type OpenWeatherMapMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

type OpenWeatherMapWind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
}

type OpenWeatherMapCond struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
