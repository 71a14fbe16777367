package server

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// routeGroup is the RouteRegistrar backed by an Echo group. Paths passed to
// Add may be relative or already carry the group prefix.
type routeGroup struct {
	group  *echo.Group
	prefix string
}

func newRouteGroup(group *echo.Group, prefix string) RouteRegistrar {
	return &routeGroup{group: group, prefix: normalizePrefix(prefix)}
}

func (rg *routeGroup) Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route {
	return rg.group.Add(method, rg.relativePath(path), handler, middleware...)
}

func (rg *routeGroup) Group(prefix string, middleware ...echo.MiddlewareFunc) RouteRegistrar {
	normalized := normalizePrefix(prefix)
	return &routeGroup{
		group:  rg.group.Group(normalized, middleware...),
		prefix: rg.prefix + normalized,
	}
}

func (rg *routeGroup) Use(middleware ...echo.MiddlewareFunc) {
	rg.group.Use(middleware...)
}

func (rg *routeGroup) FullPath(path string) string {
	full := rg.prefix + rg.relativePath(path)
	if full == "" {
		return "/"
	}
	return full
}

func (rg *routeGroup) relativePath(path string) string {
	p := ensureLeadingSlash(path)
	if p == "/" {
		return ""
	}
	if rg.prefix != "" && strings.HasPrefix(p, rg.prefix) {
		rest := strings.TrimPrefix(p, rg.prefix)
		if rest == "" || strings.HasPrefix(rest, "/") {
			return rest
		}
	}
	return p
}

func ensureLeadingSlash(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return ""
	}
	return strings.TrimRight(ensureLeadingSlash(prefix), "/")
}
