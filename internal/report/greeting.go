package report

import "time"

var greetingLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// Greeting picks a salutation from the hour of asOf. Input without a full
// date and time yields "".
func Greeting(asOf string) string {
	for _, layout := range greetingLayouts {
		if t, err := time.Parse(layout, asOf); err == nil {
			return GreetingForHour(t.Hour())
		}
	}
	return ""
}

func GreetingForHour(hour int) string {
	switch {
	case hour >= 0 && hour <= 4:
		return "Good night"
	case hour >= 5 && hour <= 11:
		return "Good morning"
	case hour >= 12 && hour <= 16:
		return "Good day"
	case hour >= 17 && hour <= 23:
		return "Good evening"
	default:
		return ""
	}
}
