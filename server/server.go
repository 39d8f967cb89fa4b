// Package server renders models on request over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"github.com/larschri/skyggekart/builder"
	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/process"
	"github.com/larschri/skyggekart/render"
)

// Server renders the raster with Options as the defaults of every request.
type Server struct {
	Raster     *dataset.Context
	Shapes     []*model.Shapes
	Options    model.Options
	Provenance builder.Provenance
	Listener   net.Listener

	Processes *process.Registry
	Colorings *render.ColoringRegistry
	Registry  *model.OptionRegistry
}

// boxParams are the query parameters that limit the model box.
var boxParams = []struct {
	name  string
	field func(o *model.Options) *float64
}{
	{"north", func(o *model.Options) *float64 { return &o.NorthLimit }},
	{"south", func(o *model.Options) *float64 { return &o.SouthLimit }},
	{"east", func(o *model.Options) *float64 { return &o.EastLimit }},
	{"west", func(o *model.Options) *float64 { return &o.WestLimit }},
}

// requestToOptions applies the query of req to a copy of the default
// options. Every other parameter must name an option.
func (srv *Server) requestToOptions(req *http.Request) (model.Options, error) {
	o := srv.Options
	query := req.URL.Query()

	for _, p := range boxParams {
		s := query.Get(p.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return o, fmt.Errorf("failed to parse %s", p.name)
		}
		*p.field(&o) = v
		o.LimitCoordinates = true
		query.Del(p.name)
	}

	for key, values := range query {
		if err := srv.Registry.Set(&o, key, values[len(values)-1]); err != nil {
			return o, err
		}
	}
	return o, nil
}

func (srv *Server) build(ctx context.Context, o model.Options) (*builder.ElevationModel, error) {
	mc, err := model.NewContext(srv.Raster.Copy(), o, nil)
	if err != nil {
		return nil, err
	}
	mc.Shapes = srv.Shapes

	b := builder.New(srv.Processes, srv.Colorings, srv.Registry)
	b.Provenance = srv.Provenance
	defer b.Dispose()
	if err := b.Prepare(mc, process.DefaultManifest(len(srv.Shapes) > 0)); err != nil {
		return nil, err
	}
	m, err := b.Process(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("model contains no data")
	}
	return m, nil
}

func writeJSONResponse(w http.ResponseWriter, result interface{}, err error) {
	if err != nil {
		w.WriteHeader(400)
		_, err := w.Write([]byte(err.Error()))
		if err != nil {
			log.Printf("failed to write HTTP 400 response: %v", err)
		}
		return
	}

	bytes, err := json.Marshal(result)
	if err != nil {
		w.WriteHeader(500)
		_, err := w.Write([]byte(err.Error()))
		if err != nil {
			log.Printf("failed to write HTTP 500 response: %v", err)
		}
		return
	}

	w.Header().Add("Content-Type", "application/json")
	_, err = w.Write(bytes)
	if err != nil {
		log.Printf("failed to write HTTP response: %v", err)
	}
}

func (srv *Server) handleOptions(w http.ResponseWriter, req *http.Request) {
	o, err := srv.requestToOptions(req)
	if err != nil {
		writeJSONResponse(w, nil, err)
		return
	}

	values := make(map[string]string)
	for _, id := range srv.Registry.IDs() {
		values[id], _ = srv.Registry.Get(&o, id)
	}
	writeJSONResponse(w, values, nil)
}

func (srv *Server) handleProperties(w http.ResponseWriter, req *http.Request) {
	o, err := srv.requestToOptions(req)
	if err != nil {
		writeJSONResponse(w, nil, err)
		return
	}

	m, err := srv.build(req.Context(), o)
	if err != nil {
		writeJSONResponse(w, nil, err)
		return
	}
	writeJSONResponse(w, map[string]interface{}{
		"properties": m.Properties,
		"histogram":  m.Histogram,
		"partial":    m.Partial,
	}, nil)
}

func (srv *Server) handleImageRequest(w http.ResponseWriter, req *http.Request) {
	o, err := srv.requestToOptions(req)
	if err != nil {
		writeJSONResponse(w, nil, err)
		return
	}

	m, err := srv.build(req.Context(), o)
	if err != nil {
		writeJSONResponse(w, nil, err)
		return
	}

	w.Header().Add("Content-Type", "image/png")
	if err := m.WritePNG(w); err != nil {
		log.Printf("failed during image encoding: %v", err)
	}
}

// Handler returns the routes of the server.
func (srv *Server) Handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/render", srv.handleImageRequest)
	m.HandleFunc("/properties", srv.handleProperties)
	m.HandleFunc("/options", srv.handleOptions)
	m.Handle("/debug/pprof/", http.DefaultServeMux)
	return m
}

// shutdownWhenDone invokes http.Server.Shutdown when the given context is cancelled.
// This function will block until context cancellation.
func shutdownWhenDone(ctx context.Context, server *http.Server) {
	log.Print("server started")
	<-ctx.Done()

	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Print("terminating server")
	server.Shutdown(c)
}

// Serve serves requests on Listener until ctx is cancelled.
func (srv *Server) Serve(ctx context.Context) error {
	server := http.Server{
		Handler: srv.Handler(),
	}

	go shutdownWhenDone(ctx, &server)

	err := server.Serve(srv.Listener)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Print("server stopped")
	return nil
}
