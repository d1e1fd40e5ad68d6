package cache

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bufferedWriter holds the body back so the middleware can still decide
// between the full response and a 304.
type bufferedWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ETagMiddleware tags successful GET responses with a hash of their body and
// answers 304 Not Modified when the client already holds that version.
func ETagMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		original := c.Writer
		writer := &bufferedWriter{ResponseWriter: original, body: bytes.NewBuffer(nil)}
		c.Writer = writer

		c.Next()

		c.Writer = original
		if original.Status() != http.StatusOK {
			original.Write(writer.body.Bytes())
			return
		}

		etag := Tag(writer.body.Bytes())
		original.Header().Set("ETag", etag)
		if Matches(c.GetHeader("If-None-Match"), etag) {
			original.Header().Del("Content-Type")
			original.Header().Del("Content-Length")
			original.WriteHeader(http.StatusNotModified)
			original.WriteHeaderNow()
			return
		}
		original.Write(writer.body.Bytes())
	}
}
