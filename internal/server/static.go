package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// spaFallback serves files from dir and answers every other GET or HEAD
// with dir/index.html so client-side routes resolve.
func spaFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found."})
			return
		}

		rel := path.Clean("/" + c.Request.URL.Path)
		if serveFile(c, filepath.Join(dir, filepath.FromSlash(rel))) {
			return
		}
		if serveFile(c, filepath.Join(dir, "index.html")) {
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found."})
	}
}

// serveFile writes name if it is a regular file and reports whether it did.
func serveFile(c *gin.Context, name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	c.Status(http.StatusOK)
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return true
}
