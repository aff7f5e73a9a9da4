package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxLoggedBody = 1024

// LoggingMiddleware logs every request. At debug level JSON request bodies
// and all response bodies are logged too, truncated.
func LoggingMiddleware(logger *zap.Logger, logLevel string) gin.HandlerFunc {
	debug := logLevel == "debug"

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		var reqBody []byte
		if debug && c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			b, err := io.ReadAll(c.Request.Body)
			if err != nil {
				logger.Error("Failed to read request body", zap.Error(err))
			}
			reqBody = b
			c.Request.Body = io.NopCloser(bytes.NewReader(b))
		}

		var blw *bodyLogWriter
		if debug {
			blw = &bodyLogWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
			c.Writer = blw
			logger.Debug("Incoming request",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("content_type", c.ContentType()),
				zap.String("body", string(truncateBody(reqBody, maxLoggedBody))))
		}

		c.Next()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if blw != nil {
			fields = append(fields, zap.String("body", string(truncateBody(blw.body.Bytes(), maxLoggedBody))))
		}
		logger.Info("Response sent", fields...)
	}
}

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyLogWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func truncateBody(body []byte, limit int) []byte {
	if len(body) > limit {
		return append(body[:limit:limit], "..."...)
	}
	return body
}
