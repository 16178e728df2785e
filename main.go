package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"

	"gopanel/app"
	"gopanel/internal/config"
	"gopanel/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	service := app.NewAnalysisService(appConfig.Analysis)
	server := ui.NewServer(appConfig, service)

	// pprof registers on the default mux, which the gin router does not serve
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("Profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("pprof server failed: %v", err)
			}
		}()
	}

	log.Printf("Starting gopanel server on port %s (max %d concurrent runs)",
		appConfig.Server.Port, appConfig.Limits.MaxConcurrentRuns)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
