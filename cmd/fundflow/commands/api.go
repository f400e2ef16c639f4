package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundflow/internal/api"
	"github.com/wonny/fundflow/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `저장된 자금흐름 데이터를 조회하는 REST API 서버를 시작합니다.
DATABASE_URL 이 필요합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/fundflow/{code}?from=&to=   - 기간별 자금흐름 조회
  POST /api/fundflow/{code}/collect     - 즉시 수집 트리거

Example:
  go run ./cmd/fundflow api
  go run ./cmd/fundflow api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== fundflow API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Wire (database required)
	a, err := newApp(cfg, appOptions{requireDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// 3. Handler → router → server
	handler := handlers.NewFundFlowHandler(a.repo, a.collector, a.cache, a.log)
	server := api.New(cfg, a.log, api.NewRouter(handler, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/fundflow/{code}?from=YYYY-MM-DD&to=YYYY-MM-DD")
	fmt.Println("  POST /api/fundflow/{code}/collect")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a listen failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
