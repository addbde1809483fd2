package rest

import (
	"net/http"
	"os"
	"path/filepath"

	mw "github.com/KotFed0t/portfolio_dashboard/internal/transport/rest/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const placeholderText = "front end not built. Run `npm run build` in the web folder and point HTTP_STATIC_DIR at the dist directory.\n"

// NewRouter wires all routes. staticDir is served at / when it exists;
// otherwise the root responds with build instructions.
func NewRouter(c *Controller, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(mw.Logger)

	r.Get("/health", c.HealthCheck)
	r.Get("/api/portfolio", c.GetPortfolio)
	r.Get("/api/portfolio/report", c.GetReport)
	r.Get("/sse", c.StreamPortfolio)

	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		fileServer := http.FileServer(http.Dir(staticDir))
		index := filepath.Join(staticDir, "index.html")
		r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
			path := filepath.Join(staticDir, filepath.Clean(req.URL.Path))
			if _, err := os.Stat(path); err == nil {
				fileServer.ServeHTTP(w, req)
				return
			}
			// SPA routes fall through to the bundle entry point
			http.ServeFile(w, req, index)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(placeholderText))
		})
	}

	return r
}
