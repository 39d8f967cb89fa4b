// Package gdalraster reads geographic elevation rasters through GDAL.
package gdalraster

import (
	"fmt"
	"log"

	"github.com/larschri/skyggekart/dataset"
	"github.com/lukeroth/gdal"
)

// Reader is a dataset.DatasetReader for any single band raster format GDAL
// understands, in geographic (lat/lon) coordinates.
type Reader struct {
	// Band is the 1-based band index. Zero means the first band.
	Band int
}

// ReadFile reads the whole band into memory. Values are registered at pixel
// centres.
func (r Reader) ReadFile(fname string) (*dataset.RasterFile, error) {
	log.Printf("reading %s", fname)
	ds, err := gdal.Open(fname, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fname, err)
	}
	defer ds.Close()

	gt := ds.GeoTransform()
	if gt[2] != 0 || gt[4] != 0 {
		return nil, fmt.Errorf("%s: rotated rasters are not supported", fname)
	}
	if gt[1] <= 0 || gt[5] >= 0 {
		return nil, fmt.Errorf("%s: unexpected pixel size %v x %v", fname, gt[1], gt[5])
	}

	band := r.Band
	if band == 0 {
		band = 1
	}
	if band > ds.RasterCount() {
		return nil, fmt.Errorf("%s: band %d out of range, file has %d", fname, band, ds.RasterCount())
	}

	xSize := ds.RasterXSize()
	ySize := ds.RasterYSize()
	if xSize <= 0 || ySize <= 0 {
		return nil, fmt.Errorf("%s: empty raster %d x %d", fname, xSize, ySize)
	}

	rb := ds.RasterBand(band)
	buf := make([]float32, xSize*ySize)
	if err := rb.IO(gdal.Read, 0, 0, xSize, ySize, buf, xSize, ySize, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to read elevation buffer from %s: %w", fname, err)
	}

	noData := float32(dataset.NoData)
	if v, ok := rb.NoDataValue(); ok {
		noData = float32(v)
	}

	buffer := make([][]float32, ySize)
	for i := range buffer {
		buffer[i] = buf[i*xSize : (i+1)*xSize]
	}

	return &dataset.RasterFile{
		Buffer:              buffer,
		North:               gt[3] + gt[5]/2,
		West:                gt[0] + gt[1]/2,
		LatitudeResolution:  -gt[5],
		LongitudeResolution: gt[1],
		NoData:              noData,
	}, nil
}
