package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Action string

type Method string

const (
	Data    Action = "data"
	Api     Action = "api"
	Metrics Action = "metrics"

	GET  Method = "GET"
	POST Method = "POST"
)

// Handler returns the response payload and status code for the request.
type Handler func(r *http.Request) ([]byte, int, error)

type Route struct {
	Action Action
	Path   string
	Method Method
	Exec   Handler
}

// Pattern returns the url path of the route e.g. '/api/orders'.
func (r Route) Pattern() string {
	if r.Path != "" {
		return fmt.Sprintf("/%s/%s", r.Action, r.Path)
	}
	return fmt.Sprintf("/%s", r.Action)
}

type Server struct {
	name   string
	port   int
	debug  bool
	routes []Route
}

func NewServer(name string, port int) *Server {
	return &Server{
		name:   name,
		port:   port,
		routes: make([]Route, 0),
	}
}

// Debug sets the server to debug mode
func (s *Server) Debug() *Server {
	s.debug = true
	return s
}

// AddRoute adds the given route to the server
func (s *Server) AddRoute(method Method, action Action, path string, exec Handler) *Server {
	s.routes = append(s.routes, Route{
		Action: action,
		Path:   path,
		Method: method,
		Exec:   exec,
	})
	return s
}

// Add adds the given routes to the server
func (s *Server) Add(route ...Route) *Server {
	s.routes = append(s.routes, route...)
	return s
}

func (s *Server) handle(route Route) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if s.debug {
			log.Debug().
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote-address", r.RemoteAddr).
				Msg("request")
		}
		defer func() {
			if s.debug {
				log.Debug().
					Str("route", route.Pattern()).
					Dur("duration", time.Since(start)).
					Msg("response")
			}
		}()
		if Method(r.Method) != route.Method {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		b, code, err := route.Exec(r)
		if err != nil {
			s.error(w, err)
			return
		}
		s.respond(w, b, code)
	}
}

// Handler returns the http handler serving all routes and the prometheus metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, route := range s.routes {
		mux.HandleFunc(route.Pattern(), s.handle(route))
	}
	mux.Handle(fmt.Sprintf("/%s", Metrics), promhttp.Handler())
	return mux
}

// Run starts the server and shuts it down once the context is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("server", s.name).Int("port", s.port).Msg("starting server")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("could not start server %s: %w", s.name, err)
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("could not stop server %s: %w", s.name, err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s failed: %w", s.name, err)
	}
	log.Info().Str("server", s.name).Msg("server stopped")
	return nil
}

func (s *Server) respond(w http.ResponseWriter, b []byte, code int) {
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_, err := w.Write(b)
	if err != nil {
		log.Error().Err(err).Msg("could not write response")
	}
}

func (s *Server) error(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("error for http request")
	s.respond(w, []byte(err.Error()), http.StatusInternalServerError)
}

// Live is the liveness route.
func Live() Route {
	return Route{
		Action: Data,
		Method: GET,
		Exec: func(r *http.Request) (payload []byte, code int, err error) {
			return []byte{}, http.StatusOK, nil
		},
	}
}

// Json encodes the value as the response payload.
func Json(v interface{}) ([]byte, int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("could not encode response: %w", err)
	}
	return b, http.StatusOK, nil
}
