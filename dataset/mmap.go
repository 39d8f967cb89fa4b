package dataset

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"path"
	"syscall"
	"unsafe"
)

// RasterFile is the decoded content of one raster file. Buffer[0] is the
// northernmost row.
type RasterFile struct {
	Buffer              [][]float32
	North               float64
	West                float64
	LatitudeResolution  float64
	LongitudeResolution float64
	NoData              float32
}

// DatasetReader reads elevation data from a file and returns it as a matrix
type DatasetReader interface {
	// ReadFile reads elevation data from a file and returns it as a matrix
	ReadFile(fname string) (*RasterFile, error)
}

const mmapMagic = 0x6d6d4544 // "DEmm"

// mmapHeader is stored in front of the float32 values of a cache file.
// Its size is a multiple of 8 so the values stay aligned.
type mmapHeader struct {
	Magic  uint32
	NoData float32
	Rows   uint64
	Cols   uint64
	North  float64
	West   float64
	LatRes float64
	LonRes float64
}

const mmapHeaderSize = int(unsafe.Sizeof(mmapHeader{}))

// Mmapped is an ElevationMap whose values live in a memory mapped cache file.
type Mmapped struct {
	*ElevationMap
	data []byte
}

// Close unmaps the cache file.
func (m *Mmapped) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	m.ElevationMap.values = nil
	return syscall.Munmap(data)
}

// LoadAsMmap will load the given fname using syscall.mmap
// The cache file is written to cacheDir on first use and rewritten when the
// source file is newer or the cache has the wrong size.
func LoadAsMmap(datasetReader DatasetReader, cacheDir string, fname string) (*Mmapped, error) {
	mmapFname := path.Join(cacheDir, path.Base(fname)+".mmap")
	fileInfo, err := os.Stat(fname)
	if err != nil {
		return nil, &DataSourceError{Op: "stat " + fname, Err: err}
	}

	mmapFileInfo, err := os.Stat(mmapFname)
	if err != nil || fileInfo.ModTime().After(mmapFileInfo.ModTime()) || mmapFileInfo.Size() < int64(mmapHeaderSize) {
		err = writeMmapped(datasetReader, fname, mmapFname)
		if err != nil {
			return nil, err
		}
	}

	return openMmapped(mmapFname)
}

func writeMmapped(datasetReader DatasetReader, fname string, mmapFname string) error {
	rf, err := datasetReader.ReadFile(fname)
	if err != nil {
		return &DataSourceError{Op: "read " + fname, Err: err}
	}
	if len(rf.Buffer) == 0 || len(rf.Buffer[0]) == 0 {
		return &DataSourceError{Op: "read " + fname, Err: fmt.Errorf("empty raster")}
	}

	f, err := os.Create(mmapFname)
	if err != nil {
		return &DataSourceError{Op: "create cache", Err: err}
	}
	defer f.Close()

	header := mmapHeader{
		Magic:  mmapMagic,
		NoData: rf.NoData,
		Rows:   uint64(len(rf.Buffer)),
		Cols:   uint64(len(rf.Buffer[0])),
		North:  rf.North,
		West:   rf.West,
		LatRes: rf.LatitudeResolution,
		LonRes: rf.LongitudeResolution,
	}
	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return &DataSourceError{Op: "write cache header", Err: err}
	}

	for i, row := range rf.Buffer {
		if uint64(len(row)) != header.Cols {
			return &DataSourceError{Op: "write cache", Err: fmt.Errorf("row %d has %d columns, expected %d", i, len(row), header.Cols)}
		}
		if err := binary.Write(f, binary.LittleEndian, row); err != nil {
			return &DataSourceError{Op: "write cache", Err: err}
		}
	}

	log.Printf("wrote raster cache %s (%d x %d)", mmapFname, header.Rows, header.Cols)
	return f.Close()
}

func openMmapped(fname string) (*Mmapped, error) {
	file, err := os.OpenFile(fname, os.O_RDONLY, 0)
	if err != nil {
		return nil, &DataSourceError{Op: "open cache", Err: err}
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return nil, &DataSourceError{Op: "stat cache", Err: err}
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, &DataSourceError{Op: "mmap cache", Err: err}
	}

	header := mmapHeader{
		Magic:  binary.LittleEndian.Uint32(data[0:]),
		NoData: math.Float32frombits(binary.LittleEndian.Uint32(data[4:])),
		Rows:   binary.LittleEndian.Uint64(data[8:]),
		Cols:   binary.LittleEndian.Uint64(data[16:]),
		North:  math.Float64frombits(binary.LittleEndian.Uint64(data[24:])),
		West:   math.Float64frombits(binary.LittleEndian.Uint64(data[32:])),
		LatRes: math.Float64frombits(binary.LittleEndian.Uint64(data[40:])),
		LonRes: math.Float64frombits(binary.LittleEndian.Uint64(data[48:])),
	}

	n := int(header.Rows * header.Cols)
	if header.Magic != mmapMagic || len(data) != mmapHeaderSize+4*n || n == 0 {
		syscall.Munmap(data)
		return nil, &DataSourceError{Op: "open cache", Err: fmt.Errorf("%s is not a raster cache file", fname)}
	}

	values := unsafe.Slice((*float32)(unsafe.Pointer(&data[mmapHeaderSize])), n)
	em := newElevationMap(values, int(header.Rows), int(header.Cols), header.North, header.West, header.LatRes, header.LonRes, header.NoData)
	return &Mmapped{ElevationMap: em, data: data}, nil
}

// LoadFiles reads every file in fNames and adds it to a new Context. Files
// that fail to load are logged and skipped. With an empty cacheDir the rasters
// are kept in memory instead of being mapped from a cache file.
func LoadFiles(datasetReader DatasetReader, cacheDir string, fNames []string) (*Context, error) {
	ctx := NewContext()
	for _, fName := range fNames {
		var data RasterData
		if cacheDir != "" {
			m, err := LoadAsMmap(datasetReader, cacheDir, fName)
			if err != nil {
				log.Printf("%s: %v", fName, err)
				continue
			}
			data = m
		} else {
			rf, err := datasetReader.ReadFile(fName)
			if err != nil {
				log.Printf("%s: %v", fName, err)
				continue
			}
			em, err := NewElevationMap(rf.Buffer, rf.North, rf.West, rf.LatitudeResolution, rf.LongitudeResolution, rf.NoData)
			if err != nil {
				log.Printf("%s: %v", fName, err)
				continue
			}
			data = em
		}
		ctx.Add(data)
	}

	if ctx.Len() == 0 && len(fNames) > 0 {
		return nil, &DataSourceError{Op: "load files", Err: fmt.Errorf("none of %d raster files could be loaded", len(fNames))}
	}
	if err := ctx.CalculateMinMax(); err != nil {
		return nil, err
	}
	return ctx, nil
}
