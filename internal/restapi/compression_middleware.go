package restapi

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// NewCompressionMiddleware gzips answers of at least minSize bytes for
// clients that accept it. A non-positive minSize uses the gzhttp default.
func NewCompressionMiddleware(minSize int) (func(http.Handler) http.Handler, error) {
	if minSize <= 0 {
		minSize = gzhttp.DefaultMinSize
	}
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.ContentTypes([]string{"application/json", "text/html", "text/plain"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build gzip wrapper: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return wrapper(next)
	}, nil
}
