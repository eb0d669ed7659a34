package apis

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const weatherBase = "https://api.weatherapi.com/v1"

// WeatherAPI is a weatherapi.com client.
type WeatherAPI struct {
	httpConfig
	APIKey string
}

// NewWeatherAPI returns a client using apiKey.
func NewWeatherAPI(apiKey string, hc *http.Client) *WeatherAPI {
	return &WeatherAPI{APIKey: apiKey, httpConfig: httpConfig{HTTPClient: hc}}
}

// Weather is the current conditions at one place.
type Weather struct {
	Location  string
	TempC     float64
	Condition string
}

// Current returns current conditions for location.
func (c *WeatherAPI) Current(ctx context.Context, location string) (Weather, error) {
	if c.APIKey == "" {
		return Weather{}, ErrMissingKey
	}
	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("q", location)
	res, err := c.getJSON(ctx, "weather", weatherBase+"/current.json?"+q.Encode(), nil)
	if err != nil {
		return Weather{}, err
	}
	temp := res.Get("current.temp_c")
	if !temp.Exists() {
		return Weather{}, fmt.Errorf("weather for %q: %w", location, ErrNoData)
	}
	return Weather{
		Location:  stringOr(res.Get("location.name"), location),
		TempC:     temp.Float(),
		Condition: stringOr(res.Get("current.condition.text"), unknown),
	}, nil
}
