package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"a1hub/internal/a1hub"
	"a1hub/internal/api"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var App *a1hub.App

// ApiInit runs the collaborator-facing HTTP surface: activation event intake
// and read-only team/wallet/reward queries. User auth and payment gateway
// handling live upstream of this service.
func ApiInit() {
	App = a1hub.Init()
	SetLogger(logFile())
	router := gin.Default()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://0.0.0.0:3000",
			"http://localhost:3000",
		},
		AllowHeaders:  []string{"Origin", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET, POST, OPTIONS"},
		MaxAge:        24 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Set("app", App)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	events := router.Group("/events/")
	{
		events.POST("/activation", api.PostActivation)
		events.POST("/activation/", api.PostActivation)
	}
	members := router.Group("/members/")
	{
		members.GET("/:id/team", api.GetTeam)
		members.GET("/:id/team/", api.GetTeam)
		members.GET("/:id/wallet", api.GetWallet)
		members.GET("/:id/wallet/", api.GetWallet)
		members.GET("/:id/commissions", api.GetCommissions)
		members.GET("/:id/commissions/", api.GetCommissions)
		members.GET("/:id/rewards", api.GetRewards)
		members.GET("/:id/rewards/", api.GetRewards)
	}
	fmt.Println("[ A1 Hub is up and listening to :8000 ]")
	if err := router.Run(":8000"); err != nil {
		log.Fatal("Failed to run A1 Hub on :8000: ", err)
	}
}
