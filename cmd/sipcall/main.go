// Command sipcall is a thin UA-client CLI: it registers against a SIP
// server and, when given a target, places one call and hangs up after a
// short hold.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sipcore/sipua/collab"
	"github.com/sipcore/sipua/uac"
)

// viperConfigBag adapts a *viper.Viper to collab.ConfigBag so the core
// packages never import viper directly (spec §6).
type viperConfigBag struct{ v *viper.Viper }

func (b viperConfigBag) String(key, def string) string {
	if !b.v.IsSet(key) {
		return def
	}
	return b.v.GetString(key)
}

func (b viperConfigBag) Int(key string, def int) int {
	if !b.v.IsSet(key) {
		return def
	}
	return b.v.GetInt(key)
}

var _ collab.ConfigBag = viperConfigBag{}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	configFile := flag.String("config", "", "path to a YAML config file")
	callTo := flag.String("call", "", "URI to call after registering, e.g. sip:bob@b.test")
	holdSeconds := flag.Int("hold", 5, "seconds to hold the call before hanging up")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05.000",
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	}

	v := viper.New()
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 5060)
	v.SetDefault("username", "alice")
	v.SetDefault("domain", "localhost")
	v.SetDefault("local_ip", "0.0.0.0")
	v.SetDefault("local_port", 0)
	v.SetEnvPrefix("SIPUA")
	v.AutomaticEnv()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Msg("failed reading config file")
		}
	}
	bag := viperConfigBag{v: v}

	client := uac.New(uac.Config{
		ServerHost: bag.String("server_host", "127.0.0.1"),
		ServerPort: bag.Int("server_port", 5060),
		Username:   bag.String("username", "alice"),
		Password:   bag.String("password", ""),
		Domain:     bag.String("domain", "localhost"),
		LocalIP:    bag.String("local_ip", "0.0.0.0"),
		LocalPort:  bag.Int("local_port", 0),
		Logger:     log,
	})

	client.SetOnTrying(func(callID string) { log.Info().Str("call_id", callID).Msg("trying") })
	client.SetOnRinging(func(callID string) { log.Info().Str("call_id", callID).Msg("ringing") })
	client.SetOnConnected(func(callID string) { log.Info().Str("call_id", callID).Msg("connected") })
	client.SetOnEnded(func(callID string) { log.Info().Str("call_id", callID).Msg("ended") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start uac client")
	}
	defer client.Stop()

	if err := client.Register(3600); err != nil {
		log.Error().Err(err).Msg("register failed")
	}

	if *callTo == "" {
		log.Info().Msg("no -call target given; registered and idle")
		select {}
	}

	callID, err := client.MakeCall(*callTo)
	if err != nil {
		log.Fatal().Err(err).Msg("make call failed")
	}

	time.Sleep(time.Duration(*holdSeconds) * time.Second)
	client.Hangup(callID)
	time.Sleep(200 * time.Millisecond)
}
