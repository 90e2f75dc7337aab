package weather

import (
	"fmt"
	"math"
	"strings"
)

// FormatForSpeech renders current conditions as text ready for TTS.
func FormatForSpeech(w *Current, includeDetails bool) string {
	if w == nil {
		return "No weather data available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current weather in %s: ", w.City)
	fmt.Fprintf(&b, "%d degrees Celsius with %s. ", w.Temperature, w.Description)

	if math.Abs(float64(w.Temperature-w.FeelsLike)) > 3 {
		fmt.Fprintf(&b, "Feels like %d degrees. ", w.FeelsLike)
	}

	if includeDetails {
		fmt.Fprintf(&b, "Humidity is %d percent. ", w.Humidity)
		if w.WindSpeed > 0 {
			fmt.Fprintf(&b, "Wind speed is %g kilometers per hour. ", w.WindSpeed)
		}

		if w.Temperature < 5 {
			b.WriteString("It's quite cold, dress warmly. ")
		} else if w.Temperature > 30 {
			b.WriteString("It's hot outside, stay hydrated. ")
		}

		desc := strings.ToLower(w.Description)
		if strings.Contains(desc, "rain") {
			b.WriteString("Don't forget an umbrella. ")
		} else if strings.Contains(desc, "snow") {
			b.WriteString("Be careful on the roads. ")
		}
	}

	return strings.TrimSpace(b.String())
}

// FormatForecastForSpeech renders a forecast as text ready for TTS. At most
// three days are spoken.
func FormatForecastForSpeech(f *Forecast) string {
	if f == nil || len(f.Forecasts) == 0 {
		return "No forecast data available."
	}

	days := f.Forecasts
	if len(days) > 3 {
		days = days[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather forecast for %s: ", f.City)

	for i, day := range days {
		if i == 0 {
			b.WriteString("Tomorrow, ")
		} else {
			fmt.Fprintf(&b, "%s, ", day.Day)
		}
		fmt.Fprintf(&b, "%s with temperatures from %d to %d degrees. ", day.Condition, day.MinTemp, day.MaxTemp)
	}

	return strings.TrimSpace(b.String())
}

// FormatAirQualityForSpeech renders an air quality reading as text ready
// for TTS.
func FormatAirQualityForSpeech(a *AirQuality) string {
	if a == nil {
		return "No air quality data available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Air quality in %s is %s. ", a.City, a.Label)

	switch a.Label {
	case "Good":
		b.WriteString("The air is clean and safe for all activities. ")
	case "Fair":
		b.WriteString("Air quality is acceptable for most people. ")
	case "Moderate":
		b.WriteString("Sensitive individuals should limit prolonged outdoor activity. ")
	case "Poor", "Very Poor":
		b.WriteString("Everyone should avoid outdoor activities. Consider using air purification indoors. ")
	}

	if a.Components.PM25 > 35 {
		fmt.Fprintf(&b, "Fine particle levels are elevated at %g micrograms per cubic meter. ", a.Components.PM25)
	}

	return strings.TrimSpace(b.String())
}
