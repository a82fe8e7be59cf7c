package api

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// LoopbackOnlyMiddleware rejects requests that did not come from this machine
func LoopbackOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		ip := net.ParseIP(host)
		if err != nil || ip == nil || !ip.IsLoopback() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   "Forbidden",
				Message: "The bridge API only accepts local connections",
			})
			return
		}

		c.Next()
	}
}

// CORSMiddleware handles CORS headers for localhost pages and the allowed
// origins. Browsers send simple requests without a preflight, so any other
// request carrying a foreign Origin is refused outright.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := origin == "" || originAllowed(origin, allowedOrigins)
		if origin != "" && allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   "Forbidden",
				Message: "Origin " + origin + " may not use the bridge API",
			})
			return
		}

		c.Next()
	}
}

// JSONOnlyMiddleware rejects bodies that are not declared as JSON. A
// text/plain POST skips the browser preflight, so it is never accepted.
func JSONOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != binding.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, ErrorResponse{
				Error:   "Unsupported media type",
				Message: "Content-Type must be " + binding.MIMEJSON,
			})
			return
		}

		c.Next()
	}
}

// originAllowed accepts pages served from localhost plus the configured list
func originAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if origin == allowed {
			return true
		}
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// Process request
		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		// Color-coded status
		var statusColor string
		switch {
		case statusCode >= 500:
			statusColor = "\033[31m" // Red
		case statusCode >= 400:
			statusColor = "\033[33m" // Yellow
		case statusCode >= 300:
			statusColor = "\033[36m" // Cyan
		default:
			statusColor = "\033[32m" // Green
		}

		resetColor := "\033[0m"

		log.Printf("%s%d%s | %s %s | %v",
			statusColor,
			statusCode,
			resetColor,
			c.Request.Method,
			c.Request.URL.Path,
			latency,
		)
	}
}

// ErrorResponse is a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// SuccessResponse is a standard success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
