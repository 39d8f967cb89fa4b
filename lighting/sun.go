package lighting

import (
	"math"
	"time"

	"github.com/golang/geo/s1"
	"gonum.org/v1/gonum/spatial/r3"
)

// SunPosition is the apparent position of the sun seen from a point.
type SunPosition struct {
	Azimuth   s1.Angle // clockwise from north
	Elevation s1.Angle // above the horizon
}

// Zenith returns the solar zenith angle.
func (p SunPosition) Zenith() s1.Angle {
	return 90*s1.Degree - p.Elevation
}

// Vector returns the unit vector pointing at the sun.
func (p SunPosition) Vector() r3.Vec {
	az, el := p.Azimuth.Radians(), p.Elevation.Radians()
	return r3.Vec{
		X: math.Sin(az) * math.Cos(el),
		Y: math.Cos(az) * math.Cos(el),
		Z: math.Sin(el),
	}
}

// SunByAngles returns a sun at the given azimuth and elevation in degrees.
func SunByAngles(azimuth, elevation float64) SunPosition {
	return SunPosition{
		Azimuth:   s1.Angle(azimuth) * s1.Degree,
		Elevation: s1.Angle(elevation) * s1.Degree,
	}
}

// SunAt returns the position of the sun at time t seen from lat/lon, using
// the NOAA solar position equations.
func SunAt(t time.Time, lat, lon float64) SunPosition {
	t = t.UTC()
	// Fractional year in radians.
	days := 365.0
	if isLeap(t.Year()) {
		days = 366
	}
	hour := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	g := 2 * math.Pi / days * (float64(t.YearDay()-1) + (hour-12)/24)

	eqTime := 229.18 * (0.000075 + 0.001868*math.Cos(g) - 0.032077*math.Sin(g) -
		0.014615*math.Cos(2*g) - 0.040849*math.Sin(2*g))
	decl := 0.006918 - 0.399912*math.Cos(g) + 0.070257*math.Sin(g) -
		0.006758*math.Cos(2*g) + 0.000907*math.Sin(2*g) -
		0.002697*math.Cos(3*g) + 0.00148*math.Sin(3*g)

	trueSolarMinutes := hour*60 + eqTime + 4*lon
	hourAngle := math.Remainder((trueSolarMinutes/4-180)*math.Pi/180, 2*math.Pi)

	phi := lat * math.Pi / 180
	cosZenith := math.Sin(phi)*math.Sin(decl) + math.Cos(phi)*math.Cos(decl)*math.Cos(hourAngle)
	cosZenith = math.Max(-1, math.Min(1, cosZenith))
	zenith := math.Acos(cosZenith)

	var azimuth float64
	if sz := math.Sin(zenith); math.Abs(sz) > 1e-12 && math.Abs(math.Cos(phi)) > 1e-12 {
		cosAz := (math.Sin(decl) - math.Sin(phi)*cosZenith) / (math.Cos(phi) * sz)
		azimuth = math.Acos(math.Max(-1, math.Min(1, cosAz)))
		if hourAngle > 0 {
			azimuth = 2*math.Pi - azimuth
		}
	}

	return SunPosition{
		Azimuth:   s1.Angle(azimuth),
		Elevation: s1.Angle(math.Pi/2 - zenith),
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
