package middleware

import (
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
	httpctx "github.com/compraventavalledeuco/compraventavalledeuco/internal/http/ctx"
)

// AdminAuth returns middleware that loads the session admin and sets it
// on the context. Requests without a valid session get 401; the JSON
// surface has no login page to redirect to.
func AdminAuth(gdb *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			cookie := ctx.Request.Header.Cookie("session_admin")
			if len(cookie) == 0 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("unauthorized")
				return
			}

			var admin dbpkg.AdminUser
			if err := gdb.Where("username = ?", string(cookie)).First(&admin).Error; err != nil {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("unauthorized")
				return
			}

			httpctx.SetAdmin(ctx, &admin)
			next(ctx)
		}
	}
}
