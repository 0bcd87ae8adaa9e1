package main

import (
	"context"
	"flag"
	"log"
	"net/netip"
	"os"
	"os/signal"

	"essaim.dev/kinectskel/bodystream"
	"essaim.dev/kinectskel/clock"
	"essaim.dev/kinectskel/config"
	"essaim.dev/kinectskel/recording"
	"essaim.dev/kinectskel/replay"
)

var (
	configFlag     string
	streamAddrFlag string
	sessionFlag    string
	loopFlag       bool
)

func init() {
	flag.StringVar(&configFlag, "config", "", "path to a yaml configuration file")
	flag.StringVar(&streamAddrFlag, "stream-addr", "", "ip address and port skeleton frames are published to, overrides the configuration")
	flag.StringVar(&sessionFlag, "session", "", "session to publish, defaults to the latest one")
	flag.BoolVar(&loopFlag, "loop", true, "start over at the end of the session")
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if configFlag != "" {
		var err error
		if cfg, err = config.Load(configFlag); err != nil {
			log.Fatalf("could not load configuration: %s", err)
		}
	}
	if streamAddrFlag != "" {
		cfg.BodyStream.Addr = streamAddrFlag
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}

	store, err := recording.Open(cfg.Recording.Database, cfg.Recording.FrameDir)
	if err != nil {
		log.Fatalf("could not open recording store: %s", err)
	}
	defer store.Close()

	id := sessionFlag
	if id == "" {
		sessions, err := store.Sessions()
		if err != nil {
			log.Fatalf("could not list sessions: %s", err)
		}
		if len(sessions) == 0 {
			log.Fatalf("no recorded session in %s", cfg.Recording.Database)
		}
		id = sessions[len(sessions)-1].ID
	}

	tl, err := store.LoadSession(id)
	if err != nil {
		log.Fatalf("could not load session: %s", err)
	}

	addr, err := netip.ParseAddrPort(cfg.BodyStream.Addr)
	if err != nil {
		log.Fatalf("could not parse ip address: %s", err)
	}

	s, err := bodystream.NewServer(addr)
	if err != nil {
		log.Fatalf("could not create body stream server: %s", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("publishing %d skeleton frames of session %s to %s", len(tl.Body), id, addr)

	n, err := replay.Stream(ctx, tl, s, clock.NewRealClock(), loopFlag)
	if err != nil && ctx.Err() == nil {
		log.Fatalf("could not publish session: %s", err)
	}
	log.Printf("published %d frames", n)
}
