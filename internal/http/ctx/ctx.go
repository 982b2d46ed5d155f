package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
)

const AdminKey = "admin"

func SetAdmin(ctx *fasthttp.RequestCtx, admin *dbpkg.AdminUser) {
	ctx.SetUserValue(AdminKey, admin)
}

func AdminFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.AdminUser, bool) {
	v := ctx.UserValue(AdminKey)
	if v == nil {
		return nil, false
	}
	admin, ok := v.(*dbpkg.AdminUser)
	return admin, ok
}
