package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/grmpy-go/internal/config"
	"github.com/danielpatrickdp/grmpy-go/internal/metrics"
	"github.com/danielpatrickdp/grmpy-go/internal/rpc"
)

func newServeCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulation and estimation over gRPC",
		Long: `Start the grmpy.v1.Estimation gRPC service and an HTTP endpoint exposing
/metrics and /healthz. Both stop on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			logger := loggerFor(cmd)
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			m := metrics.New()
			srv := grpc.NewServer()
			rpc.RegisterEstimationServer(srv, rpc.NewServer(st, m, logger))

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			// HTTP mux: /healthz + /metrics
			mux := http.NewServeMux()
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			mux.Handle("/metrics", m.Handler())
			httpSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			errCh := make(chan error, 2)
			go func() {
				logger.Info("metrics listening", "addr", metricsAddr)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("metrics server: %w", err)
				}
			}()
			go func() {
				logger.Info("grpc listening", "addr", lis.Addr().String(), "service", rpc.ServiceName)
				if err := srv.Serve(lis); err != nil {
					errCh <- fmt.Errorf("grpc server: %w", err)
				}
			}()

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-errCh:
			}

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			httpSrv.Shutdown(shutdownCtx)
			srv.GracefulStop()
			logger.Info("server stopped")
			return runErr
		},
	}

	cmd.Flags().String("addr", cfg.Addr, "gRPC listen address (GRMPY_ADDR)")
	cmd.Flags().String("metrics-addr", cfg.MetricsAddr, "Metrics listen address (GRMPY_METRICS_ADDR)")
	return cmd
}
