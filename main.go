package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"

	"github.com/larschri/skyggekart/builder"
	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/dataset/gdalraster"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/process"
	"github.com/larschri/skyggekart/render"
	"github.com/larschri/skyggekart/server"
	"gopkg.in/yaml.v3"
)

// config is the layout of the -config file.
type config struct {
	Options    model.Options      `yaml:"options"`
	Provenance builder.Provenance `yaml:"provenance"`
}

func defaultConfig() config {
	return config{
		Options:    model.DefaultOptions(),
		Provenance: builder.Provenance{Subject: "Shaded relief"},
	}
}

func loadConfig(fname string) (config, error) {
	cfg := defaultConfig()
	if fname == "" {
		return cfg, nil
	}
	f, err := os.Open(fname)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", fname, err)
	}
	return cfg, nil
}

// settings collects repeated -set key=value flags.
type settings []string

func (s *settings) String() string { return strings.Join(*s, ",") }

func (s *settings) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

func (s settings) apply(r *model.OptionRegistry, o *model.Options) error {
	for _, kv := range s {
		key, value, _ := strings.Cut(kv, "=")
		if err := r.Set(o, key, value); err != nil {
			return err
		}
	}
	return nil
}

func loadShapes(layers []model.ShapeLayer) ([]*model.Shapes, error) {
	var shapes []*model.Shapes
	for _, l := range layers {
		s, err := model.LoadShapes(l)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

func newServer(raster *dataset.Context, shapes []*model.Shapes, cfg config, addr string) (*server.Server, error) {
	colorings, err := render.NewColoringRegistry()
	if err != nil {
		return nil, err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &server.Server{
		Raster:     raster,
		Shapes:     shapes,
		Options:    cfg.Options,
		Provenance: cfg.Provenance,
		Listener:   l,
		Processes:  process.DefaultRegistry(),
		Colorings:  colorings,
		Registry:   model.NewOptionRegistry(),
	}, nil
}

func renderOnce(ctx context.Context, raster *dataset.Context, shapes []*model.Shapes, cfg config, out, artifact string) error {
	colorings, err := render.NewColoringRegistry()
	if err != nil {
		return err
	}
	mc, err := model.NewContext(raster, cfg.Options, nil)
	if err != nil {
		return err
	}
	mc.Shapes = shapes

	b := builder.New(process.DefaultRegistry(), colorings, model.NewOptionRegistry())
	b.Provenance = cfg.Provenance
	b.AddTileCompletionListener(builder.TileCompletionFunc(func(row, rows int) {
		if (row+1)%100 == 0 || row+1 == rows {
			log.Printf("rendered %d of %d rows", row+1, rows)
		}
	}))
	defer b.Dispose()
	defer context.AfterFunc(ctx, b.Interrupter().Cancel)()

	if err := b.Prepare(mc, process.DefaultManifest(len(shapes) > 0)); err != nil {
		return err
	}
	m, err := b.Process(context.Background())
	if err != nil {
		return err
	}
	if m == nil {
		log.Print("nothing rendered")
		return nil
	}
	if m.Partial {
		log.Print("render cancelled, writing partial image")
	}

	if out != "" {
		if err := writeFile(out, m.WritePNG); err != nil {
			return err
		}
	}
	if artifact != "" {
		if err := writeFile(artifact, m.Save); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(fname string, write func(w io.Writer) error) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", fname, err)
	}
	return f.Close()
}

func main() {
	var sets settings
	configFile := flag.String("config", "", "yaml file with options and provenance")
	out := flag.String("out", "model.png", "png output file")
	artifact := flag.String("artifact", "", "model artifact output file")
	cacheDir := flag.String("cache", "", "directory for memory mapped raster caches")
	addr := flag.String("serve", "", "serve HTTP on this address instead of rendering once")
	flag.Var(&sets, "set", "option override key=value, repeatable")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if err := sets.apply(model.NewOptionRegistry(), &cfg.Options); err != nil {
		log.Fatal(err)
	}

	raster, err := dataset.LoadFiles(gdalraster.Reader{}, *cacheDir, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	shapes, err := loadShapes(cfg.Options.Shapes)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *addr != "" {
		srv, err := newServer(raster, shapes, cfg, *addr)
		if err != nil {
			log.Fatal(err)
		}
		if err := srv.Serve(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := renderOnce(ctx, raster, shapes, cfg, *out, *artifact); err != nil {
		log.Fatal(err)
	}
}
