package server

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// moduleRoutes registers module routes under the configured base path.
// Paths may be given relative to the base or already prefixed with it.
type moduleRoutes struct {
	group *echo.Group
	base  string
}

func newModuleRoutes(e *echo.Echo, basePath string) *moduleRoutes {
	base := normalizeBasePath(basePath)
	return &moduleRoutes{group: e.Group(base), base: base}
}

func (m *moduleRoutes) Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route {
	return m.group.Add(method, m.relative(path), handler, middleware...)
}

// FullPath returns the path clients call to reach path.
func (m *moduleRoutes) FullPath(path string) string {
	return joinPath(m.base, m.relative(path))
}

func (m *moduleRoutes) relative(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if m.base == "" {
		return path
	}
	if path == "/" || path == m.base {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, m.base+"/"); ok {
		return "/" + rest
	}
	return path
}

func joinPath(base, route string) string {
	if route == "" || route == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + route
}
