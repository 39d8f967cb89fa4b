package dataset

// DataSourceError is returned when raster or grid storage cannot be read,
// written or configured.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return "data source: " + e.Op + ": " + e.Err.Error()
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
