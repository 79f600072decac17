package middleware

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"menlo.ai/query-cache/app/utils/contextkeys"
)

// maxLoggedBody caps how much of a request or response body reaches the log.
const maxLoggedBody = 4 << 10

type BodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w BodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		w.body.Write(b[:min(room, len(b))])
	}
	return w.ResponseWriter.Write(b)
}

// LoggerMiddleware logs every request once it completes. Headers are left out:
// admin requests carry the bearer token. Bodies of quietPaths, such as metrics
// scrapes and health checks, are not captured.
func LoggerMiddleware(logger *logrus.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, path := range quietPaths {
		quiet[path] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		ctx := context.WithValue(c.Request.Context(), contextkeys.RequestId{}, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Request-ID", requestID)

		fields := logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"query":      c.Request.URL.RawQuery,
			"client_ip":  c.ClientIP(),
		}

		var blw *BodyLogWriter
		if _, skip := quiet[c.Request.URL.Path]; !skip {
			if c.Request.Body != nil {
				reqBody, _ := io.ReadAll(c.Request.Body)
				c.Request.Body = io.NopCloser(bytes.NewReader(reqBody))
				fields["req_body"] = string(reqBody[:min(len(reqBody), maxLoggedBody)])
			}
			blw = &BodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
			c.Writer = blw
		}

		c.Next()

		fields["status"] = c.Writer.Status()
		fields["latency"] = time.Since(start).String()
		if blw != nil {
			fields["resp_body"] = blw.body.String()
		}
		logger.WithFields(fields).Info("")
	}
}
