package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// CORS - политика origin для REST и апгрейда сокета
type CORS struct {
	cors *cors.Cors
}

func CORSOptions(allowOrigins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func NewCORS(allowOrigins []string) *CORS {
	return &CORS{cors: cors.New(CORSOptions(allowOrigins))}
}

// Handler оборачивает cors.Handler для gin; preflight дальше по цепочке не идет
func (m *CORS) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		m.cors.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// OriginAllowed для websocket.Upgrader.CheckOrigin: запрос без Origin (не браузер) пропускается,
// иначе решение принимает та же политика cors, что и для REST
func (m *CORS) OriginAllowed(r *http.Request) bool {
	if r.Header.Get("Origin") == "" {
		return true
	}

	check := &originCheck{header: make(http.Header)}
	req := r.Clone(r.Context())
	req.Method = http.MethodGet
	m.cors.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(check, req)
	return check.header.Get("Access-Control-Allow-Origin") != ""
}

// originCheck собирает только заголовки ответа cors
type originCheck struct {
	header http.Header
}

func (o *originCheck) Header() http.Header         { return o.header }
func (o *originCheck) Write(b []byte) (int, error) { return len(b), nil }
func (o *originCheck) WriteHeader(int)             {}
