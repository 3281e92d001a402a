package main

import (
	"flag"
	"os"

	"github.com/ai2c/amap/internal/bootstrap"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/ai2c/amap/internal/server"
)

// @title A-MAP API
// @version 1.0
// @description Aviation maintainer personnel, training and fault history API
// @termsOfService http://swagger.io/terms/

// @contact.name A-MAP Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

// @securityDefinitions.apikey ServiceKey
// @in header
// @name X-Service-Key
// @description Scheduler key for the ETL endpoints

func main() {
	configPath := flag.String("config", bootstrap.DefaultConfigPath, "path to the YAML config file")
	flag.Parse()

	srv, err := server.NewServer(*configPath)
	if err != nil {
		// details are logged by the setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
