// Package apitest provides a fake iControl REST server for tests.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
)

type ApiHandler func(t *testing.T, w http.ResponseWriter, r *http.Request)

// ApiServer serves canned responses keyed by "METHOD /path" and, on Close,
// asserts that every handler was used exactly once.
type ApiServer struct {
	*httptest.Server
	t        *testing.T
	username string
	password string
	handlers map[string]ApiHandler
	served   map[string]int
}

func NewApiServer(t *testing.T, username, password string, handlers map[string]ApiHandler) *ApiServer {
	s := newApiServer(t, username, password, handlers)
	s.Server = httptest.NewServer(s)
	return s
}

// NewTLSApiServer is like NewApiServer but serves HTTPS with a self-signed
// certificate, as devices do.
func NewTLSApiServer(t *testing.T, username, password string, handlers map[string]ApiHandler) *ApiServer {
	s := newApiServer(t, username, password, handlers)
	s.Server = httptest.NewTLSServer(s)
	return s
}

func newApiServer(t *testing.T, username, password string, handlers map[string]ApiHandler) *ApiServer {
	return &ApiServer{
		t:        t,
		username: username,
		password: password,
		handlers: handlers,
		served:   make(map[string]int),
	}
}

func (s *ApiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u, p, ok := r.BasicAuth(); !ok || u != s.username || p != s.password {
		http.Error(w, `{"code":401,"message":"Authorization failed"}`, http.StatusUnauthorized)
		return
	}

	op := fmt.Sprintf("%s %s", r.Method, r.URL.RequestURI())
	if handler, ok := s.handlers[op]; ok {
		handler(s.t, w, r)
		s.served[op]++
	} else {
		http.Error(w, "unsupported operation", http.StatusInternalServerError)
	}
}

func (s *ApiServer) Close() {
	s.Server.Close()

	s.t.Helper()

	expected := make(map[string]int)
	for op := range s.handlers {
		expected[op] = 1
	}
	assert.Equal(s.t, expected, s.served)
}

func JsonFromYamlHandler(filename string) ApiHandler {
	return func(_ *testing.T, w http.ResponseWriter, _ *http.Request) {
		bytes, err := yamlToJson(filename)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err = w.Write(bytes)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func yamlToJson(filename string) ([]byte, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return yaml.YAMLToJSON(bytes)
}
