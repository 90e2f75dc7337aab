package skills

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arcnova-labs/arcnova/pkg/weather"
)

// Weather command types recognized by ExtractWeatherCommand.
const (
	WeatherCommandCurrent    = "current_weather"
	WeatherCommandForecast   = "forecast"
	WeatherCommandAirQuality = "air_quality"
	WeatherCommandFlight     = "flight_conditions"
)

// DefaultCity is assumed when a weather request names no location.
const DefaultCity = "New York"

// WeatherParams carries the parameters extracted from a weather command.
type WeatherParams struct {
	City string
	Days int
}

var weatherPrefixes = []string{
	"hey", "jarvis", "arcnova", "can you", "could you", "please",
	"would you", "i want", "i need", "tell me", "show me", "give me",
}

var currentWeatherPatterns = compileAll(
	`^(?:what(?:'s|'re| is| are) )?(?:the )?(?:current |today's )?weather(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:how(?:'s| is) )?(?:the )?weather(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:what's |what is )?(?:it )?like (?:outside |out there )?(?:in (.+?))?\??$`,
	`^(?:is it |will it be )?(?:hot|cold|warm|cool|rainy|sunny|cloudy)(?:\s+(?:in|today in)\s+(.+?))?\??$`,
	`^temperature(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:give me |tell me |show me )?(?:the )?weather report(?:\s+(?:for|in)\s+(.+?))?\??$`,
)

var forecastPatterns = compileAll(
	`^(?:what(?:'s|'re| is| are) )?(?:the )?(?:weather )?forecast(?:\s+(?:for|in)\s+(.+?))?\??$`,
	`^(?:weather )?(?:for )?(?:the )?(?:next |upcoming )(?:few |couple of )?days(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:what )?(?:will |is )(?:the )?weather(?:\s+be)?(?: like)? tomorrow(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:will it |is it going to )?(?:rain|snow|be sunny|be cloudy) (?:tomorrow|this week)(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:give me |tell me |show me )?(?:a )?(?:\d+ )?day forecast(?:\s+(?:for|in)\s+(.+?))?\??$`,
)

var airQualityPatterns = compileAll(
	`^(?:what(?:'s|'re| is| are) )?(?:the )?air quality(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:how(?:'s| is) )?(?:the )?(?:air |air pollution )(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:is )?(?:the )?air (?:clean|safe|polluted)(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:check |get |show me )?(?:the )?(?:aqi|air quality index)(?:\s+(?:for|in)\s+(.+?))?\??$`,
	`^pollution (?:level |levels )?(?:\s+(?:in|for)\s+(.+?))?\??$`,
)

var flightPatterns = compileAll(
	`^(?:are |what are )?(?:the )?(?:flight |flying )conditions(?:\s+(?:in|for)\s+(.+?))?\??$`,
	`^(?:is it |are conditions )?(?:good |safe )(?:for |to )?(?:fly|flying|take off)(?:\s+(?:in|from)\s+(.+?))?\??$`,
	`^(?:can i |should i )?(?:fly |take the suit out )(?:today )?(?:\s+(?:in|from)\s+(.+?))?\??$`,
	`^suit (?:flight )?conditions(?:\s+(?:in|for)\s+(.+?))?\??$`,
)

var weatherKeywords = []string{
	"weather", "temperature", "forecast", "rain", "snow", "sunny",
	"cloudy", "hot", "cold", "warm", "cool", "humidity", "wind",
	"storm", "air quality", "aqi", "pollution", "flight conditions",
	"visibility", "pressure", "sunrise", "sunset", "celsius", "fahrenheit",
}

var daysPattern = regexp.MustCompile(`(\d+)\s*day`)
var cityFallbackPattern = regexp.MustCompile(`(?:in|for|at)\s+([a-z\s]+?)(?:\?|$)`)

// ExtractWeatherCommand parses a transcript into a weather command. The
// empty command string means the text is not a weather request.
func ExtractWeatherCommand(text string) (string, WeatherParams) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", WeatherParams{}
	}
	text = stripPrefixes(text, weatherPrefixes)

	if city, ok := matchCity(currentWeatherPatterns, text); ok {
		return WeatherCommandCurrent, WeatherParams{City: city}
	}

	if city, ok := matchCity(forecastPatterns, text); ok {
		days := 3
		if m := daysPattern.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				days = min(n, weather.MaxForecastDays)
			}
		}
		return WeatherCommandForecast, WeatherParams{City: city, Days: days}
	}

	if city, ok := matchCity(airQualityPatterns, text); ok {
		return WeatherCommandAirQuality, WeatherParams{City: city}
	}

	if city, ok := matchCity(flightPatterns, text); ok {
		return WeatherCommandFlight, WeatherParams{City: city}
	}

	fallbackKeywords := []string{
		"weather", "temperature", "forecast", "rain", "snow", "sunny",
		"cloudy", "hot", "cold", "humidity", "wind", "storm",
	}
	for _, kw := range fallbackKeywords {
		if strings.Contains(text, kw) {
			city := DefaultCity
			if m := cityFallbackPattern.FindStringSubmatch(text); m != nil {
				city = strings.TrimSpace(m[1])
			}
			return WeatherCommandCurrent, WeatherParams{City: city}
		}
	}

	return "", WeatherParams{}
}

func matchCity(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		city := ""
		if len(m) > 1 {
			city = strings.TrimSpace(m[1])
		}
		if city == "" {
			city = DefaultCity
		}
		return city, true
	}
	return "", false
}

// FlightAssessment rates how suitable current conditions are for flight.
type FlightAssessment struct {
	SafeToFly       bool     `json:"safe_to_fly"`
	Rating          string   `json:"rating"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
}

// AssessFlightConditions combines weather and air quality into a flight
// readiness rating. airData may be nil.
func AssessFlightConditions(w *weather.Current, airData *weather.AirQuality) FlightAssessment {
	a := FlightAssessment{SafeToFly: true, Rating: "Excellent"}

	if w.WindSpeed > 50 {
		a.SafeToFly = false
		a.Concerns = append(a.Concerns, fmt.Sprintf("High winds at %g km/h", w.WindSpeed))
		a.Recommendations = append(a.Recommendations, "Ground the suit - winds too strong")
	} else if w.WindSpeed > 30 {
		a.Rating = "Moderate"
		a.Concerns = append(a.Concerns, fmt.Sprintf("Moderate winds at %g km/h", w.WindSpeed))
		a.Recommendations = append(a.Recommendations, "Expect turbulence, engage stabilizers")
	}

	if w.VisibilityKm < 1 {
		a.SafeToFly = false
		a.Concerns = append(a.Concerns, fmt.Sprintf("Poor visibility at %g km", w.VisibilityKm))
		a.Recommendations = append(a.Recommendations, "Use enhanced sensors and HUD")
	} else if w.VisibilityKm < 5 {
		a.Rating = "Moderate"
		a.Concerns = append(a.Concerns, fmt.Sprintf("Limited visibility at %g km", w.VisibilityKm))
	}

	condition := strings.ToLower(w.Condition)
	if strings.Contains(condition, "thunderstorm") {
		a.SafeToFly = false
		a.Concerns = append(a.Concerns, "Thunderstorm activity detected")
		a.Recommendations = append(a.Recommendations, "Avoid flight - electrical interference risk")
	} else if strings.Contains(condition, "snow") || strings.Contains(condition, "rain") {
		if a.Rating == "Excellent" {
			a.Rating = "Moderate"
		}
		desc := w.Description
		if desc == "" {
			desc = condition
		}
		a.Concerns = append(a.Concerns, "Precipitation: "+desc)
		a.Recommendations = append(a.Recommendations, "Activate weather shielding")
	}

	if w.Temperature < -20 || w.Temperature > 45 {
		a.Rating = "Poor"
		a.Concerns = append(a.Concerns, fmt.Sprintf("Extreme temperature: %d°C", w.Temperature))
		a.Recommendations = append(a.Recommendations, "Check thermal systems before flight")
	}

	if airData != nil && airData.AQI >= 4 {
		a.Rating = "Poor"
		a.Concerns = append(a.Concerns, "Poor air quality: "+airData.Label)
		a.Recommendations = append(a.Recommendations, "Seal the suit, use internal oxygen")
	}

	if !a.SafeToFly {
		a.Rating = "Dangerous"
	} else if len(a.Concerns) == 0 {
		a.Rating = "Perfect"
	} else if len(a.Concerns) <= 2 && a.Rating == "Excellent" {
		a.Rating = "Good"
	}

	return a
}

// WeatherSkill answers weather requests with live conditions.
type WeatherSkill struct {
	client *weather.Client
}

// NewWeatherSkill creates a weather skill backed by client.
func NewWeatherSkill(client *weather.Client) *WeatherSkill {
	return &WeatherSkill{client: client}
}

// Name identifies the skill in logs.
func (s *WeatherSkill) Name() string { return "weather" }

// Matches reports whether text contains weather-related intent.
func (s *WeatherSkill) Matches(text string) bool {
	text = strings.ToLower(text)
	if text == "" {
		return false
	}

	for _, kw := range weatherKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	questions := []string{
		"what's the weather", "how's the weather", "is it raining",
		"will it rain", "is it hot", "is it cold", "what's it like outside",
	}
	for _, q := range questions {
		if strings.Contains(text, q) {
			return true
		}
	}
	return false
}

// Handle executes the weather command in text and returns speech-ready
// output.
func (s *WeatherSkill) Handle(ctx context.Context, text string) string {
	if !s.client.Available() {
		return "Weather systems are offline. Get an API key from OpenWeatherMap - even a genius needs data access."
	}

	cmd, params := ExtractWeatherCommand(text)
	if cmd == "" {
		cmd = WeatherCommandCurrent
		params = WeatherParams{City: DefaultCity}
	}

	switch cmd {
	case WeatherCommandForecast:
		res := s.client.DailyForecast(ctx, params.City, params.Days)
		if !res.Success {
			return weatherErrorSpeech(res.Message)
		}
		return "Accessing weather satellites... " + weather.FormatForecastForSpeech(res.Data) +
			" Plan accordingly - I don't control the weather. Yet."

	case WeatherCommandAirQuality:
		res := s.client.CurrentAirQuality(ctx, params.City)
		if !res.Success {
			return weatherErrorSpeech(res.Message)
		}
		speech := weather.FormatAirQualityForSpeech(res.Data)
		switch res.Data.Label {
		case "Good":
			speech += " Perfect for a test flight."
		case "Poor", "Very Poor":
			speech += " I'd keep the helmet sealed if I were you."
		}
		return speech

	case WeatherCommandFlight:
		return s.flightConditions(ctx, params.City)

	default:
		res := s.client.Current(ctx, params.City, "")
		if !res.Success {
			return weatherErrorSpeech(res.Message)
		}
		return currentWeatherSpeech(res.Data)
	}
}

func (s *WeatherSkill) flightConditions(ctx context.Context, city string) string {
	weatherRes := s.client.Current(ctx, city, "")
	if !weatherRes.Success {
		return weatherErrorSpeech(weatherRes.Message)
	}

	var airData *weather.AirQuality
	if airRes := s.client.CurrentAirQuality(ctx, city); airRes.Success {
		airData = airRes.Data
	}

	assessment := AssessFlightConditions(weatherRes.Data, airData)

	var b strings.Builder
	fmt.Fprintf(&b, "Flight conditions for %s: ", weatherRes.Data.City)

	switch assessment.Rating {
	case "Perfect":
		b.WriteString("Perfect conditions for flight. Clear skies, minimal wind. The suit is ready when you are. ")
	case "Excellent":
		b.WriteString("Excellent flying weather. Minor factors to consider but nothing the suit can't handle. ")
	case "Good":
		b.WriteString("Good conditions overall. A few things to watch out for. ")
	case "Moderate":
		b.WriteString("Moderate conditions. Proceed with caution. ")
	case "Poor":
		b.WriteString("Poor conditions for flight. I'd recommend postponing. ")
	default:
		b.WriteString("Dangerous conditions! Absolutely not safe to fly. ")
	}

	if len(assessment.Concerns) > 0 {
		b.WriteString("Concerns: " + strings.Join(assessment.Concerns, ", ") + ". ")
	}
	if len(assessment.Recommendations) > 0 {
		b.WriteString("My recommendations: " + strings.Join(assessment.Recommendations, ". ") + ". ")
	}

	if assessment.SafeToFly {
		b.WriteString("The Mark 85 is prepped and ready. Your call, boss.")
	} else {
		b.WriteString("I strongly advise keeping the suit in the garage today.")
	}
	return b.String()
}

func currentWeatherSpeech(w *weather.Current) string {
	speech := weather.FormatForSpeech(w, true)

	if w.Temperature < 0 {
		speech += " The arc reactor should keep you warm, but maybe grab a jacket for appearances."
	} else if w.Temperature > 35 {
		speech += " The suit's cooling system will come in handy today."
	}

	condition := strings.ToLower(w.Condition)
	if strings.Contains(condition, "clear") {
		speech += " Perfect visibility for a high-altitude flight."
	} else if strings.Contains(condition, "rain") {
		speech += " The suit's hydrophobic coating will keep you dry."
	} else if strings.Contains(condition, "snow") {
		speech += " Time to test the de-icing systems."
	}
	return speech
}

func weatherErrorSpeech(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not available"):
		return "Weather systems are offline. Get an API key from OpenWeatherMap - even a genius needs data access."
	case strings.Contains(lower, "not found"):
		return "That city doesn't exist in my database. Did you spell it correctly? I'm a genius, not a mind reader."
	case strings.Contains(lower, "rate limit"):
		return "We've exceeded the weather API rate limit. Apparently, even I have limits."
	}
	return message
}

var _ Skill = (*WeatherSkill)(nil)
