package run

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artfundry/bounty-server/internal/app"
	"github.com/artfundry/bounty-server/internal/config"
	"github.com/artfundry/bounty-server/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bounty server",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", 8881, "Port to run the server on")
	flags.String("host", "localhost", "Host to run the server on")
	flags.String("environment", "dev", "Environment configuration")
	flags.Bool("disable-auth", false, "Disable authentication when receiving requests")
	flags.String("filesystem-type", "local", "Filesystem type: 'local' or 's3'")
	flags.String("public-dir", "", "Path where static files should be served from")

	flags.String("db-driver", "sqlite", "Database driver: 'sqlite' or 'pg'")
	flags.String("db-dsn", "file:./data/main.db", "Database DSN (Connection URL or Path)")
	flags.String("pulsar-url", "", "URL of the pulsar broker. Example: pulsar+ssl://my-cluster.streamnative.cloud:6651")

	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-bucket-name", "", "S3 bucket name")
	flags.String("s3-folder", "", "S3 folder")
	flags.String("s3-public-url", "", "Public URL for S3 files")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL")

	viper.BindPFlags(flags)
	bindEnvs()
}

func bindEnvs() {
	// Core settings (use the BOUNTY_ prefix)
	// Example: BOUNTY_PORT
	viper.BindEnv("port")
	viper.BindEnv("host")
	viper.BindEnv("environment")
	viper.BindEnv("disable_auth")
	viper.BindEnv("filesystem_type")
	viper.BindEnv("public_dir")

	viper.BindEnv("db.driver")
	viper.BindEnv("db.dsn")
	viper.BindEnv("pulsar.url")

	// S3 environment bindings (use the BOUNTY_ prefix)
	// Example: BOUNTY_S3_ACCESS_KEY
	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.public_url")
	viper.BindEnv("s3.endpoint_url")

	// External API services (does NOT use the BOUNTY_ prefix)
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
}

func runApp(_ *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()

	options := []app.OptionFunc{
		app.WithDBInitialization(),
		app.WithMQ(),
		app.WithFileUploader(),
	}
	if cfg.OpenAI != nil && cfg.OpenAI.APIKey != "" {
		options = append(options, app.WithModeration())
	}
	options = append(options, app.WithBountyService())

	application, err := app.NewApp(cfg, options...)
	if err != nil {
		return err
	}
	defer application.Close()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	srv.SetupRoutes(application)

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("Bounty server started on port %v\n", cfg.Port)
		errc <- srv.Start()
	}()

	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-signalc:
		return srv.Stop(application.Context())
	}
}
