package request

import "net/http"

// ClientWriter wraps a http.ResponseWriter, capturing the status code written
// to the client so middleware can report on it after the handler returns.
type ClientWriter struct {
	http.ResponseWriter
	statusCode int
}

// NewClientWriter creates a new ClientWriter.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{
		ResponseWriter: w,
	}
}

// WriteHeader records the status code before passing it on.
func (c *ClientWriter) WriteHeader(statusCode int) {
	c.statusCode = statusCode
	c.ResponseWriter.WriteHeader(statusCode)
}

// Write writes the data to the connection, defaulting the status code to 200
// when the handler never set one.
func (c *ClientWriter) Write(b []byte) (int, error) {
	if c.statusCode == 0 {
		c.statusCode = http.StatusOK
	}
	return c.ResponseWriter.Write(b)
}

// StatusCode returns the status code written to the client.
func (c *ClientWriter) StatusCode() int {
	if c.statusCode == 0 {
		return http.StatusOK
	}
	return c.statusCode
}
