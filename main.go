package main

import (
	"log"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"github.com/compraventavalledeuco/compraventavalledeuco/internal/config"
	"github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
	"github.com/compraventavalledeuco/compraventavalledeuco/internal/geo"
	"github.com/compraventavalledeuco/compraventavalledeuco/internal/http/handlers"
	appmw "github.com/compraventavalledeuco/compraventavalledeuco/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	db.StartRetentionWorker(gdb, cfg.RetentionDays)

	if err := db.EnsureBootstrapAdmin(gdb, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}

	handlers.InitPrometheusMetrics()

	var locator geo.Locator = geo.Static{}
	if cfg.GeoProvider == "http" {
		locator = geo.NewHTTP(6 * time.Hour)
	}

	r := router.New()

	handler := handlers.RequestLogger(r.Handler)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.POST("/login", handlers.LoginSubmit(gdb))
	r.POST("/logout", handlers.Logout())

	// Public tracking endpoints, called by the marketplace pages.
	r.GET("/v1/listings/{id}/view", handlers.TrackView(gdb, locator))
	r.GET("/v1/listings/{id}/click/{type}", handlers.TrackClick(gdb))
	r.POST("/v1/visits/{page}", handlers.TrackPageVisit(gdb))

	// Back-office analytics, session protected.
	r.GET("/v1/stats/dashboard", appmw.AdminAuth(gdb)(handlers.Dashboard(gdb)))
	r.GET("/v1/stats/listing/{id}", appmw.AdminAuth(gdb)(handlers.ListingStats(gdb)))
	r.GET("/v1/stats/daily", appmw.AdminAuth(gdb)(handlers.DailyViews(gdb)))
	r.GET("/v1/stats/top", appmw.AdminAuth(gdb)(handlers.TopListingsHandler(gdb)))
	r.GET("/v1/stats/recent", appmw.AdminAuth(gdb)(handlers.RecentViews(gdb)))
	r.POST("/admin/listings/{id}/reset-views", appmw.AdminAuth(gdb)(handlers.ResetViews(gdb)))

	r.GET("/metrics", handlers.MetricsExport())

	log.Printf("vucomarket analytics listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
