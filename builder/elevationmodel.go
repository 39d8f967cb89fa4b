package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/model"
	"github.com/vmihailenco/msgpack/v5"
)

// ProductVersion is written to the product-version property.
const ProductVersion = "0.1.0"

// Provenance is the descriptive part of the model properties.
type Provenance struct {
	Subject            string `yaml:"subject"`
	Description        string `yaml:"description"`
	Author             string `yaml:"author"`
	AuthorContact      string `yaml:"authorContact"`
	Institution        string `yaml:"institution"`
	InstitutionContact string `yaml:"institutionContact"`
	InstitutionAddress string `yaml:"institutionAddress"`
}

// ElevationModel is the result of a build: the image and the properties
// describing how it was made.
type ElevationModel struct {
	Image      *image.RGBA
	Properties map[string]string
	Histogram  grid.Histogram

	// Partial is set when the render pass was cancelled.
	Partial bool
}

type artifact struct {
	Image      []byte            `msgpack:"image"`
	Properties map[string]string `msgpack:"properties"`
	Histogram  grid.Histogram    `msgpack:"histogram"`
	Partial    bool              `msgpack:"partial"`
}

// WritePNG encodes the image as PNG.
func (m *ElevationModel) WritePNG(w io.Writer) error {
	return (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(w, m.Image)
}

// Save writes the model as zstd compressed msgpack.
func (m *ElevationModel) Save(w io.Writer) error {
	var img bytes.Buffer
	if err := m.WritePNG(&img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	err = msgpack.NewEncoder(zw).Encode(&artifact{
		Image:      img.Bytes(),
		Properties: m.Properties,
		Histogram:  m.Histogram,
		Partial:    m.Partial,
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return zw.Close()
}

// Load reads a model written by Save.
func Load(r io.Reader) (*ElevationModel, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var a artifact
	if err := msgpack.NewDecoder(zr).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	decoded, err := png.Decode(bytes.NewReader(a.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img, ok := decoded.(*image.RGBA)
	if !ok {
		img = image.NewRGBA(decoded.Bounds())
		draw.Draw(img, img.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	}
	return &ElevationModel{
		Image:      img,
		Properties: a.Properties,
		Histogram:  a.Histogram,
		Partial:    a.Partial,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// properties returns the property map of a model built from mc.
func properties(mc *model.Context, p Provenance, options *model.OptionRegistry, renderDate string) map[string]string {
	o := mc.Options
	dims := mc.Dimensions()
	raster := mc.Raster

	projection, _ := options.Get(&o, model.OptionMapProjection)
	perspective, _ := options.Get(&o, model.OptionViewAngle)

	return map[string]string{
		"subject":             p.Subject,
		"description":         p.Description,
		"author":              p.Author,
		"author-contact":      p.AuthorContact,
		"institution":         p.Institution,
		"institution-contact": p.InstitutionContact,
		"institution-address": p.InstitutionAddress,
		"render-date":         renderDate,
		"product-version":     ProductVersion,

		"max-model-latitude":  formatFloat(mc.North()),
		"min-model-latitude":  formatFloat(mc.South()),
		"max-model-longitude": formatFloat(mc.East()),
		"min-model-longitude": formatFloat(mc.West()),
		"max-data-latitude":   formatFloat(raster.North()),
		"min-data-latitude":   formatFloat(raster.South()),
		"max-data-longitude":  formatFloat(raster.East()),
		"min-data-longitude":  formatFloat(raster.West()),

		"model-resolution-latitude":    formatFloat(dims.ModelLatitudeResolution),
		"model-resolution-longitude":   formatFloat(dims.ModelLongitudeResolution),
		"texture-resolution-latitude":  formatFloat(dims.TextureLatitudeResolution),
		"texture-resolution-longitude": formatFloat(dims.TextureLongitudeResolution),
		"data-resolution-latitude":     formatFloat(dims.DataLatitudeResolution),
		"data-resolution-longitude":    formatFloat(dims.DataLongitudeResolution),

		"elevation-minimum":          formatFloat(raster.DataMinimumValue()),
		"elevation-maximum-true":     formatFloat(raster.DataMaximumValueTrue()),
		"elevation-maximum-scaled":   formatFloat(raster.DataMaximumValue()),
		"elevation-minmax-estimated": strconv.FormatBool(raster.MinMaxEstimated()),

		"model-columns": strconv.Itoa(dims.OutputWidth),
		"model-rows":    strconv.Itoa(dims.OutputHeight),
		"data-columns":  strconv.Itoa(dims.DataColumns),
		"data-rows":     strconv.Itoa(dims.DataRows),

		"render-projection":  o.RenderProjection,
		"elevation-scale":    o.ElevationScale,
		"elevation-multiple": formatFloat(o.ElevationMultiple),
		"planet":             mc.Planet().ID,
		"projection":         projection,
		"view-perspective":   perspective,
	}
}
