package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/categorizer/infrastructure/jwt"
	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
)

// ServerBuilder assembles a Server fluently.
type ServerBuilder struct {
	config      Config
	logger      infralogger.Logger
	setupRoutes func(*gin.Engine)
	checks      map[string]HealthChecker
	middleware  []gin.HandlerFunc
}

// NewServerBuilder starts a builder for serviceName listening on port.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config: Config{ServiceName: serviceName, Port: port},
		checks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the logger used by middleware and lifecycle logs.
func (b *ServerBuilder) WithLogger(log infralogger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

// WithHost binds the listener to host.
func (b *ServerBuilder) WithHost(host string) *ServerBuilder {
	b.config.Host = host
	return b
}

// WithDebug toggles gin debug mode.
func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

// WithVersion sets the version reported by /health.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

// WithTimeouts sets the http.Server timeouts.
func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

// WithHealthCheck registers a named dependency check reported by /health.
func (b *ServerBuilder) WithHealthCheck(name string, checker HealthChecker) *ServerBuilder {
	b.checks[name] = checker
	return b
}

// WithMiddleware adds handlers after the standard chain and before every route,
// health routes included.
func (b *ServerBuilder) WithMiddleware(mw ...gin.HandlerFunc) *ServerBuilder {
	b.middleware = append(b.middleware, mw...)
	return b
}

// WithRoutes sets the service route registration.
func (b *ServerBuilder) WithRoutes(setup func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setup
	return b
}

// Build creates the Server.
func (b *ServerBuilder) Build() *Server {
	log := b.logger
	if log == nil {
		log = infralogger.NewNop()
	}

	cfg := b.config
	checks := b.checks
	setup := b.setupRoutes
	middleware := b.middleware

	return NewServer(&cfg, log, func(router *gin.Engine) {
		if len(middleware) > 0 {
			router.Use(middleware...)
		}
		RegisterHealthRoutes(router, HealthOptions{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: cfg.ServiceVersion,
			Checks:         checks,
		})
		if setup != nil {
			setup(router)
		}
	})
}

// ProtectedGroup returns a route group guarded by JWT auth when jwtSecret is set.
func ProtectedGroup(router *gin.Engine, path, jwtSecret string) *gin.RouterGroup {
	group := router.Group(path)
	if jwtSecret != "" {
		group.Use(jwt.Middleware(jwtSecret))
	}
	return group
}
