package api

import "net/http"

// Route is one entry of the server's route table
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Pattern returns the ServeMux pattern for the route
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

// Routes returns the route table. The mock device API, /assets included,
// is left out in static mode; a GET route also answers HEAD.
func (s *Server) Routes() []Route {
	var routes []Route

	if !s.opts.Static {
		routes = append(routes,
			Route{http.MethodGet, "/edit", s.handleEdit},

			Route{http.MethodGet, "/editc", s.echo("/editc")},
			Route{http.MethodPost, "/editc", s.echo("/editc")},
			Route{http.MethodPut, "/editc", s.echo("/editc")},

			Route{http.MethodGet, "/editd", s.echo("/editd")},
			Route{http.MethodPost, "/editd", s.echo("/editd")},
			Route{http.MethodDelete, "/editd", s.echo("/editd")},

			Route{http.MethodPost, "/editu", s.handleUpload},

			Route{http.MethodGet, "/config", s.handleConfig},
			Route{http.MethodPost, "/config", s.echo("/config")},

			Route{http.MethodGet, "/assets/{path...}", s.handleAssets},
		)
	}

	if s.opts.Metrics != nil {
		routes = append(routes, Route{http.MethodGet, "/metrics", s.opts.Metrics.Handler().ServeHTTP})
	}
	if s.opts.LiveReload != nil {
		routes = append(routes, Route{http.MethodGet, "/livereload", s.opts.LiveReload.ServeHTTP})
	}

	return append(routes, Route{http.MethodGet, "/", s.handleStatic})
}
