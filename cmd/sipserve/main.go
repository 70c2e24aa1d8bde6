// Command sipserve runs a UA-server/registrar: it accepts REGISTER,
// auto-answers inbound INVITE with a canned SDP body, and exposes
// Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sipcore/sipua/uas"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05.000",
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	}

	v := viper.New()
	v.SetDefault("local_ip", "0.0.0.0")
	v.SetDefault("local_port", 5060)
	v.SetDefault("domain", "localhost")
	v.SetDefault("metrics_addr", ":8080")
	v.SetEnvPrefix("SIPUA")
	v.AutomaticEnv()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Msg("failed reading config file")
		}
	}

	server := uas.New(uas.Config{
		LocalIP:   v.GetString("local_ip"),
		LocalPort: v.GetInt("local_port"),
		Domain:    v.GetString("domain"),
		Logger:    log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start uas server")
	}
	log.Info().Str("local", server.LocalAddr()).Msg("sipserve listening")

	go serveMetrics(v.GetString("metrics_addr"), log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("sipserve shutting down")
	server.Stop()
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics listener stopped")
	}
}
