package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(srv *httptest.Server, key string) *Client {
	c := NewClient(func() string { return key })
	if srv != nil {
		c.baseURL = srv.URL
		c.geocodeURL = srv.URL + "/geo"
	}
	return c
}

func TestCurrentUnavailableWithoutKey(t *testing.T) {
	c := newTestClient(nil, "")
	res := c.Current(context.Background(), "London", "")
	if res.Success {
		t.Error("expected failure without API key")
	}
	if !strings.Contains(res.Message, "not available") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("expected metric units, got %q", got)
		}
		fmt.Fprint(w, `{
			"name":"London","sys":{"country":"GB","sunrise":1756612800,"sunset":1756660800},
			"main":{"temp":17.6,"feels_like":16.2,"humidity":72,"pressure":1012},
			"weather":[{"main":"Clouds","description":"overcast clouds"}],
			"wind":{"speed":4.2,"deg":220},
			"visibility":10000,"clouds":{"all":90},
			"coord":{"lat":51.51,"lon":-0.13}
		}`)
	}))
	defer srv.Close()

	c := newTestClient(srv, "weather-key")
	res := c.Current(context.Background(), "London", "GB")

	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	w := res.Data
	if w.City != "London" || w.Country != "GB" {
		t.Errorf("unexpected location: %+v", w)
	}
	if w.Temperature != 18 {
		t.Errorf("expected rounded temperature 18, got %d", w.Temperature)
	}
	if w.WindSpeed != 15.1 {
		t.Errorf("expected wind 15.1 km/h, got %g", w.WindSpeed)
	}
	if w.VisibilityKm != 10 {
		t.Errorf("expected visibility 10 km, got %g", w.VisibilityKm)
	}
}

func TestCurrentCityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv, "weather-key")
	res := c.Current(context.Background(), "Atlantis", "")

	if res.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Message, "'Atlantis' not found") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestDailyForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			http.NotFound(w, r)
			return
		}
		// Two days of entries, three hours apart, 86400s = one day.
		fmt.Fprint(w, `{
			"city":{"name":"Paris","country":"FR"},
			"list":[
				{"dt":1756717200,"main":{"temp":20.0},"weather":[{"main":"Clear"}]},
				{"dt":1756728000,"main":{"temp":24.0},"weather":[{"main":"Clear"}]},
				{"dt":1756738800,"main":{"temp":22.0},"weather":[{"main":"Clouds"}]},
				{"dt":1756803600,"main":{"temp":15.0},"weather":[{"main":"Rain"}]},
				{"dt":1756814400,"main":{"temp":17.0},"weather":[{"main":"Rain"}]}
			]
		}`)
	}))
	defer srv.Close()

	c := newTestClient(srv, "weather-key")
	res := c.DailyForecast(context.Background(), "Paris", 2)

	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	f := res.Data
	if f.City != "Paris" {
		t.Errorf("unexpected city: %q", f.City)
	}
	if len(f.Forecasts) != 2 {
		t.Fatalf("expected 2 days, got %d", len(f.Forecasts))
	}

	day1 := f.Forecasts[0]
	if day1.MinTemp != 20 || day1.MaxTemp != 24 || day1.AvgTemp != 22 {
		t.Errorf("unexpected first day temps: %+v", day1)
	}
	if day1.Condition != "Clear" {
		t.Errorf("expected most common condition Clear, got %q", day1.Condition)
	}
	if f.Forecasts[1].Condition != "Rain" {
		t.Errorf("expected second day Rain, got %q", f.Forecasts[1].Condition)
	}
}

func TestCurrentAirQuality(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/geo":
			fmt.Fprint(w, `[{"lat":28.61,"lon":77.21}]`)
		case "/air_pollution":
			if r.URL.Query().Get("lat") == "" {
				t.Error("expected lat parameter")
			}
			fmt.Fprint(w, `{"list":[{"main":{"aqi":4},"components":{"co":312.4,"no2":45.111,"o3":60.2,"pm2_5":88.756,"pm10":120.1,"so2":12.0}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, "weather-key")
	res := c.CurrentAirQuality(context.Background(), "Delhi")

	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	a := res.Data
	if a.AQI != 4 || a.Label != "Poor" {
		t.Errorf("unexpected AQI: %+v", a)
	}
	if a.Components.PM25 != 88.76 {
		t.Errorf("expected PM2.5 rounded to 88.76, got %g", a.Components.PM25)
	}
}

func TestCurrentAirQualityGeocodeMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(srv, "weather-key")
	res := c.CurrentAirQuality(context.Background(), "Nowhere")

	if res.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Message, "Could not find coordinates") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestFormatForSpeech(t *testing.T) {
	w := &Current{
		City:        "London",
		Temperature: 18,
		FeelsLike:   17,
		Description: "overcast clouds",
		Humidity:    72,
		WindSpeed:   15.1,
	}

	got := FormatForSpeech(w, true)
	if !strings.HasPrefix(got, "Current weather in London: 18 degrees Celsius with overcast clouds.") {
		t.Errorf("unexpected text: %q", got)
	}
	if strings.Contains(got, "Feels like") {
		t.Errorf("feels-like should be omitted for small deltas: %q", got)
	}
	if !strings.Contains(got, "Humidity is 72 percent.") {
		t.Errorf("missing humidity: %q", got)
	}

	w.FeelsLike = 12
	got = FormatForSpeech(w, false)
	if !strings.Contains(got, "Feels like 12 degrees.") {
		t.Errorf("missing feels-like: %q", got)
	}

	w.Temperature = 2
	w.Description = "light rain"
	got = FormatForSpeech(w, true)
	if !strings.Contains(got, "quite cold") || !strings.Contains(got, "umbrella") {
		t.Errorf("missing advice: %q", got)
	}
}

func TestFormatForecastForSpeech(t *testing.T) {
	if got := FormatForecastForSpeech(nil); got != "No forecast data available." {
		t.Errorf("unexpected text: %q", got)
	}

	f := &Forecast{
		City: "Paris",
		Forecasts: []ForecastDay{
			{Day: "Tuesday", MinTemp: 20, MaxTemp: 24, Condition: "Clear"},
			{Day: "Wednesday", MinTemp: 15, MaxTemp: 17, Condition: "Rain"},
		},
	}
	got := FormatForecastForSpeech(f)
	if !strings.Contains(got, "Tomorrow, Clear with temperatures from 20 to 24 degrees.") {
		t.Errorf("missing first day: %q", got)
	}
	if !strings.Contains(got, "Wednesday, Rain with temperatures from 15 to 17 degrees.") {
		t.Errorf("missing second day: %q", got)
	}
}

func TestFormatAirQualityForSpeech(t *testing.T) {
	a := &AirQuality{
		City:       "Delhi",
		AQI:        4,
		Label:      "Poor",
		Components: AirComponents{PM25: 88.76},
	}
	got := FormatAirQualityForSpeech(a)
	if !strings.HasPrefix(got, "Air quality in Delhi is Poor.") {
		t.Errorf("unexpected text: %q", got)
	}
	if !strings.Contains(got, "avoid outdoor activities") {
		t.Errorf("missing advice: %q", got)
	}
	if !strings.Contains(got, "88.76 micrograms") {
		t.Errorf("missing PM2.5 callout: %q", got)
	}
}
