package primitives

import (
	"math"
	"time"
)

// EstimateSymbolicTime approximates the seconds-since-local-midnight at
// which a symbolic time token (Dawn, SunRise, SunSet, Dusk) occurs on date,
// at the given latitude/longitude, offset by offsetMin minutes.
//
// This is the "deterministic approximation used ONLY for ordering
// comparisons when exact sun times require geolocation context" from
// spec.md §4.1 — it is never written back into identity or state (a caller
// that lacks lat/lon gets ok=false and must treat the window as
// potentially-overlapping per §4.5, never invent a value).
//
// The calculation uses the standard solar hour-angle equation (the same one
// NOAA's sunrise/sunset spreadsheet is built on); Dawn/Dusk are modeled as
// civil twilight (+/- 6 degrees of solar depression) around SunRise/SunSet.
func EstimateSymbolicTime(date time.Time, token SymbolicToken, lat, lon float64, tz *time.Location, offsetMin, stepMin int) (int, bool) {
	if tz == nil {
		return 0, false
	}
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, tz)
	dayOfYear := float64(noon.YearDay())

	// Fractional year, radians.
	gamma := 2 * math.Pi / 365 * (dayOfYear - 1)

	eqTime := 229.18 * (0.000075 + 0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
	decl := 0.006918 - 0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	latRad := lat * math.Pi / 180

	var zenith float64
	switch token {
	case SunRise, SunSet:
		zenith = 90.833 * math.Pi / 180
	case Dawn, Dusk:
		zenith = 96.0 * math.Pi / 180
	default:
		return 0, false
	}

	cosHourAngle := (math.Cos(zenith) - math.Sin(latRad)*math.Sin(decl)) / (math.Cos(latRad) * math.Cos(decl))
	if cosHourAngle > 1 || cosHourAngle < -1 {
		// Sun never reaches this zenith today (polar day/night): no estimate.
		return 0, false
	}
	hourAngle := math.Acos(cosHourAngle) * 180 / math.Pi

	_, tzOffsetSeconds := noon.Zone()
	tzOffsetMin := float64(tzOffsetSeconds) / 60

	var minutesFromMidnightUTCNoonBasis float64
	switch token {
	case SunRise, Dawn:
		minutesFromMidnightUTCNoonBasis = 720 - 4*(lon+hourAngle) - eqTime
	case SunSet, Dusk:
		minutesFromMidnightUTCNoonBasis = 720 - 4*(lon-hourAngle) - eqTime
	}
	localMinutes := minutesFromMidnightUTCNoonBasis + tzOffsetMin + float64(offsetMin)

	// Round to the requested step to keep the estimate stable/deterministic
	// for comparison purposes rather than false-precision.
	if stepMin > 0 {
		localMinutes = math.Round(localMinutes/float64(stepMin)) * float64(stepMin)
	}

	seconds := int(math.Round(localMinutes * 60))
	for seconds < 0 {
		seconds += 24 * 3600
	}
	seconds %= 24 * 3600
	return seconds, true
}
