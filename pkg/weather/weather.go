// Package weather fetches conditions, forecasts and air quality from
// OpenWeatherMap and formats them for speech.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/arcnova-labs/arcnova/internal/httpc"
	"github.com/arcnova-labs/arcnova/internal/log"
)

const (
	weatherAPIBaseURL  = "https://api.openweathermap.org/data/2.5"
	geocodingAPIURL    = "https://api.openweathermap.org/geo/1.0/direct"
	unavailableMessage = "Weather service is not available. Please configure your OpenWeatherMap API key."
)

// MaxForecastDays is the longest forecast the 3-hourly endpoint covers.
const MaxForecastDays = 5

// AQILabels maps the OpenWeatherMap air quality index to a spoken label.
var AQILabels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// Current is the current conditions for one city.
type Current struct {
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Temperature   int     `json:"temperature"`
	FeelsLike     int     `json:"feels_like"`
	Condition     string  `json:"condition"`
	Description   string  `json:"description"`
	Humidity      int     `json:"humidity"`
	Pressure      int     `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection int     `json:"wind_direction"`
	VisibilityKm  float64 `json:"visibility"`
	Clouds        int     `json:"clouds"`
	Sunrise       string  `json:"sunrise"`
	Sunset        string  `json:"sunset"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

// ForecastDay is one summarized day of the forecast.
type ForecastDay struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	MinTemp   int    `json:"min_temp"`
	MaxTemp   int    `json:"max_temp"`
	AvgTemp   int    `json:"avg_temp"`
	Condition string `json:"condition"`
}

// Forecast is a multi-day forecast for one city.
type Forecast struct {
	City      string        `json:"city"`
	Country   string        `json:"country"`
	Forecasts []ForecastDay `json:"forecasts"`
}

// AirComponents is the pollutant breakdown in micrograms per cubic meter.
type AirComponents struct {
	CO   float64 `json:"co"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	SO2  float64 `json:"so2"`
}

// AirQuality is the air quality reading for one city.
type AirQuality struct {
	City       string        `json:"city"`
	AQI        int           `json:"aqi"`
	Label      string        `json:"aqi_label"`
	Components AirComponents `json:"components"`
}

// CurrentResult wraps a current conditions lookup.
type CurrentResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *Current `json:"data"`
}

// ForecastResult wraps a forecast lookup.
type ForecastResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *Forecast `json:"data"`
}

// AirQualityResult wraps an air quality lookup.
type AirQualityResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *AirQuality `json:"data"`
}

type apiError struct{ msg string }

func (e *apiError) Error() string { return e.msg }

// Client talks to OpenWeatherMap. The API key is read through a function so
// a key changed at runtime takes effect on the next call.
type Client struct {
	keyFn      func() string
	baseURL    string
	geocodeURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewClient creates a weather client.
func NewClient(keyFn func() string) *Client {
	return &Client{
		keyFn:      keyFn,
		baseURL:    weatherAPIBaseURL,
		geocodeURL: geocodingAPIURL,
		client:     httpc.Client,
		logger:     log.Component("weather"),
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.keyFn() != ""
}

// Current fetches current conditions for a city. countryCode may be empty.
func (c *Client) Current(ctx context.Context, city, countryCode string) CurrentResult {
	if !c.Available() {
		return CurrentResult{Message: unavailableMessage}
	}

	place := city
	if countryCode != "" {
		place = city + "," + countryCode
	}

	params := url.Values{}
	params.Set("q", place)
	params.Set("units", "metric")

	var raw struct {
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			Pressure  int     `json:"pressure"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   int     `json:"deg"`
		} `json:"wind"`
		Visibility int `json:"visibility"`
		Clouds     struct {
			All int `json:"all"`
		} `json:"clouds"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	}

	if err := c.get(ctx, c.baseURL+"/weather", params, &raw); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.msg == "not found" {
			return CurrentResult{Message: fmt.Sprintf("City '%s' not found. Please check the city name.", city)}
		}
		c.logger.Warn("current weather fetch failed", "city", city, "error", err)
		return CurrentResult{Message: errorMessage(err, "fetching weather")}
	}

	name := raw.Name
	if name == "" {
		name = city
	}
	condition := "Unknown"
	description := ""
	if len(raw.Weather) > 0 {
		condition = raw.Weather[0].Main
		description = raw.Weather[0].Description
	}

	data := &Current{
		City:          name,
		Country:       raw.Sys.Country,
		Temperature:   int(math.Round(raw.Main.Temp)),
		FeelsLike:     int(math.Round(raw.Main.FeelsLike)),
		Condition:     condition,
		Description:   description,
		Humidity:      raw.Main.Humidity,
		Pressure:      raw.Main.Pressure,
		WindSpeed:     math.Round(raw.Wind.Speed*3.6*10) / 10,
		WindDirection: raw.Wind.Deg,
		VisibilityKm:  float64(raw.Visibility) / 1000,
		Clouds:        raw.Clouds.All,
		Sunrise:       time.Unix(raw.Sys.Sunrise, 0).Format("15:04"),
		Sunset:        time.Unix(raw.Sys.Sunset, 0).Format("15:04"),
		Lat:           raw.Coord.Lat,
		Lon:           raw.Coord.Lon,
	}

	return CurrentResult{
		Success: true,
		Message: fmt.Sprintf("Weather data retrieved for %s", data.City),
		Data:    data,
	}
}

// DailyForecast fetches the forecast for up to MaxForecastDays days,
// summarizing the 3-hourly entries into one line per day.
func (c *Client) DailyForecast(ctx context.Context, city string, days int) ForecastResult {
	if !c.Available() {
		return ForecastResult{Message: unavailableMessage}
	}

	if days <= 0 {
		days = 3
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("units", "metric")
	params.Set("cnt", strconv.Itoa(days*8))

	var raw struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Main string `json:"main"`
			} `json:"weather"`
		} `json:"list"`
		City struct {
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"city"`
	}

	if err := c.get(ctx, c.baseURL+"/forecast", params, &raw); err != nil {
		c.logger.Warn("forecast fetch failed", "city", city, "error", err)
		return ForecastResult{Message: errorMessage(err, "fetching forecast")}
	}

	type dayAccum struct {
		date       string
		day        string
		temps      []float64
		conditions []string
	}
	var order []string
	byDate := map[string]*dayAccum{}

	for _, item := range raw.List {
		ts := time.Unix(item.Dt, 0)
		date := ts.Format("2006-01-02")
		acc, ok := byDate[date]
		if !ok {
			acc = &dayAccum{date: date, day: ts.Format("Monday")}
			byDate[date] = acc
			order = append(order, date)
		}
		acc.temps = append(acc.temps, item.Main.Temp)
		if len(item.Weather) > 0 {
			acc.conditions = append(acc.conditions, item.Weather[0].Main)
		}
	}

	summary := make([]ForecastDay, 0, days)
	for _, date := range order {
		if len(summary) == days {
			break
		}
		acc := byDate[date]
		minT, maxT, sum := acc.temps[0], acc.temps[0], 0.0
		for _, t := range acc.temps {
			minT = math.Min(minT, t)
			maxT = math.Max(maxT, t)
			sum += t
		}
		summary = append(summary, ForecastDay{
			Date:      acc.date,
			Day:       acc.day,
			MinTemp:   int(math.Round(minT)),
			MaxTemp:   int(math.Round(maxT)),
			AvgTemp:   int(math.Round(sum / float64(len(acc.temps)))),
			Condition: mostCommon(acc.conditions),
		})
	}

	name := raw.City.Name
	if name == "" {
		name = city
	}
	return ForecastResult{
		Success: true,
		Message: fmt.Sprintf("Forecast retrieved for %s", name),
		Data: &Forecast{
			City:      name,
			Country:   raw.City.Country,
			Forecasts: summary,
		},
	}
}

// CurrentAirQuality fetches the air quality for a city by geocoding it first.
func (c *Client) CurrentAirQuality(ctx context.Context, city string) AirQualityResult {
	if !c.Available() {
		return AirQualityResult{Message: unavailableMessage}
	}

	lat, lon, err := c.coordinates(ctx, city)
	if err != nil {
		c.logger.Warn("geocoding failed", "city", city, "error", err)
		return AirQualityResult{Message: fmt.Sprintf("Could not find coordinates for %s", city)}
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var raw struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components struct {
				CO   float64 `json:"co"`
				NO2  float64 `json:"no2"`
				O3   float64 `json:"o3"`
				PM25 float64 `json:"pm2_5"`
				PM10 float64 `json:"pm10"`
				SO2  float64 `json:"so2"`
			} `json:"components"`
		} `json:"list"`
	}

	if err := c.get(ctx, c.baseURL+"/air_pollution", params, &raw); err != nil {
		c.logger.Warn("air quality fetch failed", "city", city, "error", err)
		return AirQualityResult{Message: errorMessage(err, "fetching air quality")}
	}
	if len(raw.List) == 0 {
		return AirQualityResult{Message: "No air quality data available"}
	}

	reading := raw.List[0]
	label, ok := AQILabels[reading.Main.AQI]
	if !ok {
		label = "Unknown"
	}

	return AirQualityResult{
		Success: true,
		Message: fmt.Sprintf("Air quality data retrieved for %s", city),
		Data: &AirQuality{
			City:  city,
			AQI:   reading.Main.AQI,
			Label: label,
			Components: AirComponents{
				CO:   round2(reading.Components.CO),
				NO2:  round2(reading.Components.NO2),
				O3:   round2(reading.Components.O3),
				PM25: round2(reading.Components.PM25),
				PM10: round2(reading.Components.PM10),
				SO2:  round2(reading.Components.SO2),
			},
		},
	}
}

func (c *Client) coordinates(ctx context.Context, city string) (lat, lon float64, err error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("limit", "1")

	var raw []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := c.get(ctx, c.geocodeURL, params, &raw); err != nil {
		return 0, 0, err
	}
	if len(raw) == 0 {
		return 0, 0, &apiError{"no results"}
	}
	return raw[0].Lat, raw[0].Lon, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("appid", c.keyFn())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &apiError{"not found"}
	case http.StatusUnauthorized:
		return &apiError{"Invalid API key. Please check your OpenWeatherMap credentials."}
	case http.StatusTooManyRequests:
		return &apiError{"Rate limit exceeded. Please try again later."}
	default:
		return &apiError{fmt.Sprintf("HTTP error %d", resp.StatusCode)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(err error, action string) string {
	var ae *apiError
	if errors.As(err, &ae) && ae.msg != "not found" {
		return ae.msg
	}
	return fmt.Sprintf("Error %s: %s", action, err)
}

func mostCommon(values []string) string {
	if len(values) == 0 {
		return ""
	}
	counts := map[string]int{}
	best, bestCount := values[0], 0
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
