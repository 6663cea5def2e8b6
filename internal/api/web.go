// internal/api/web.go
package api

import "net/http"

// WebHandler serves the dashboard's static assets from dir. The bare root
// redirects to the monitor page so a browser pointed at the port lands on
// the dashboard.
func WebHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/monitor.html", http.StatusFound)
			return
		}
		fs.ServeHTTP(w, r)
	})
	return mux
}
