package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"androidagent/api"
	"androidagent/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent and the local operator API.",
	Long: `Connects to the control server when the device is registered, executes incoming
commands and serves the local API until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noConnect, _ := cmd.Flags().GetBool("no-connect")

		logFile, err := setupLogging(cfg.LogDir)
		if err != nil {
			log.Printf("Warning: Failed to setup file logging: %v", err)
		} else {
			defer logFile.Close()
		}

		log.Println("Starting Android agent...")

		a, err := newApp(cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := api.NewStatusHub()
		a.agent.Subscribe(hub)

		router := gin.Default()
		api.SetupRoutes(router, a.agent, a.results, hub)
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
		g.Go(func() error {
			log.Printf("Local API on http://%s", cfg.HTTPAddr)
			log.Printf("Status WebSocket on ws://%s/ws", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			log.Println("🛑 Shutting down...")
			a.agent.Disconnect()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if !noConnect {
			switch err := a.agent.Connect(); {
			case errors.Is(err, service.ErrNotRegistered):
				log.Println("⚠️ Device is not registered. Run 'androidagent register --name <name>' or POST /api/register.")
			case err != nil:
				log.Printf("❌ Failed to connect: %v", err)
			}
		}

		return g.Wait()
	},
}

func init() {
	runCmd.Flags().Bool("no-connect", false, "Do not open the control channel on startup")
	rootCmd.AddCommand(runCmd)
}
