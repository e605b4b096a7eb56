// Command wsengine runs the WebSocket protocol engine server.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/pepnova/wsengine/internal/wsconfig"
	"github.com/pepnova/wsengine/internal/wslog"
	"github.com/pepnova/wsengine/internal/wsmetrics"
	"github.com/pepnova/wsengine/internal/wsserver"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wsengine",
	Short: "A server-side WebSocket protocol engine supporting hixie75/hybi00/hybi-latest",
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the WebSocket server",
	Example: "# wsengine serve --config wsengine.yaml",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Configuration file path (yaml)")
	serveCmd.Flags().String("listen", "", "Override listen_addr from config")
	serveCmd.Flags().Bool("allow-hixie75", false, "Override allow_hixie75 from config")
	serveCmd.Flags().Bool("mux", false, "Enable the multiplexing extension")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := wsconfig.Load(configPath)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.ListenAddr = v
	}
	if v, _ := cmd.Flags().GetBool("allow-hixie75"); v {
		cfg.AllowHixie75 = true
	}
	enableMux, _ := cmd.Flags().GetBool("mux")

	log, err := wslog.New(cfg.LogLevel, wslog.RotationConfig{Filename: cfg.LogFile})
	if err != nil {
		return err
	}
	defer log.Sync()

	metrics := wsmetrics.New()
	srv := wsserver.New(wsserver.Options{
		AllowHixie75: cfg.AllowHixie75,
		Secure:       cfg.TLSEnabled,
		EnableMux:    enableMux,
		PingInterval: cfg.PingInterval(),
	}, log, metrics)

	srv.Handle("/echo", echoHandler{})

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, metrics)
	}

	log.Sugar().Infof("listening on %s", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, srv)
}

func serveMetrics(addr string, metrics *wsmetrics.Collectors) {
	reg := prometheusRegistry()
	metrics.MustRegisterAll(reg)
	_ = http.ListenAndServe(addr, promHandler(reg))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
