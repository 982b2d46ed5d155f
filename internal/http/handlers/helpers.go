package handlers

import (
	"encoding/json"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
	httpctx "github.com/compraventavalledeuco/compraventavalledeuco/internal/http/ctx"
)

// MustAdmin returns the session admin from context, or sends 401 and
// returns (nil, false).
func MustAdmin(ctx *fasthttp.RequestCtx) (*dbpkg.AdminUser, bool) {
	admin, ok := httpctx.AdminFromCtx(ctx)
	if !ok || admin == nil {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return nil, false
	}
	return admin, true
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log.Printf("%s %s -> %d (%s) ip=%s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start), ctx.RemoteAddr())
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data map[string]any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

// clientAddr extracts the visitor address, honoring reverse-proxy
// headers before falling back to the socket peer.
func clientAddr(ctx *fasthttp.RequestCtx) string {
	if xf := string(ctx.Request.Header.Peek("X-Forwarded-For")); xf != "" {
		parts := strings.Split(xf, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Real-IP"))); xr != "" {
		return xr
	}
	addr := ctx.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// pathID parses the {id} route parameter as a listing ID.
func pathID(ctx *fasthttp.RequestCtx) (uint, bool) {
	raw, _ := ctx.UserValue("id").(string)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// queryInt reads an integer query parameter with a default and an upper bound.
func queryInt(ctx *fasthttp.RequestCtx, key string, def, max int) int {
	v := def
	if s := string(ctx.QueryArgs().Peek(key)); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			v = n
		}
	}
	if v > max {
		v = max
	}
	return v
}
