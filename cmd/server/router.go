package main

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/bubbletasks/internal/api"
	"github.com/phrazzld/bubbletasks/internal/api/middleware"
	"github.com/phrazzld/bubbletasks/internal/upload"
)

// corsMaxAge is how long browsers may cache a preflight response, in seconds.
const corsMaxAge = 300

// setupRouter creates the router with middleware, the API routes under /api
// and the uploaded files under /uploads.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware(app.logger))
	r.Use(middleware.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))

	r.NotFound(api.NotFound)
	r.MethodNotAllowed(api.MethodNotAllowed)

	r.Route("/api", app.handlers().Mount)

	uploads := http.Dir(app.uploads.Dir())
	r.Handle(upload.URLPrefix+"*", http.StripPrefix(upload.URLPrefix, serveUploads(uploads)))

	return r
}

// serveUploads serves regular files from root. Directories and missing files
// get the JSON 404.
func serveUploads(root http.Dir) http.Handler {
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		f, err := root.Open(name)
		if err != nil {
			api.NotFound(w, r)
			return
		}
		fi, err := f.Stat()
		_ = f.Close()
		if err != nil || fi.IsDir() {
			api.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
