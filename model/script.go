package model

// ScriptProxy is the contract of a user script attached to a model. A nil
// proxy disables every hook.
type ScriptProxy interface {
	Initialize() error
	OnProcessBefore() error
	OnProcessAfter() error
	Destroy() error

	// SetProperty exposes a model object to the script under name.
	SetProperty(name string, value any) error
}

// PointScript is implemented by scripts that adjust individual points.
type PointScript interface {
	// OnGetElevation returns the elevation to store for a point.
	OnGetElevation(lat, lon, elevation float64) (float64, error)

	// OnGetPointColor may modify the color of a point in place.
	OnGetPointColor(lat, lon, elevation float64, rgba *[4]uint8) error
}
