package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"essaim.dev/kinectskel/config"
	"essaim.dev/kinectskel/joints"
	"essaim.dev/kinectskel/recording"
	"essaim.dev/kinectskel/replay"
	"essaim.dev/kinectskel/skeleton"
)

var (
	configFlag  string
	sessionFlag string
	outFlag     string
	startFlag   int64
	workersFlag int
	fullFlag    bool
	listFlag    bool
)

func init() {
	flag.StringVar(&configFlag, "config", "", "path to a yaml configuration file")
	flag.StringVar(&sessionFlag, "session", "", "session to render, defaults to the latest one")
	flag.StringVar(&outFlag, "out", "out", "directory the annotated frames are written to")
	flag.Int64Var(&startFlag, "start", 0, "device timestamp to start rendering at")
	flag.IntVar(&workersFlag, "workers", 0, "number of frames rendered concurrently")
	flag.BoolVar(&fullFlag, "full-body", false, "also draw the legs")
	flag.BoolVar(&listFlag, "list", false, "list recorded sessions and exit")
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

	store, err := recording.Open(cfg.Recording.Database, cfg.Recording.FrameDir)
	if err != nil {
		log.Fatalf("could not open recording store: %s", err)
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		log.Fatalf("could not list sessions: %s", err)
	}

	if listFlag {
		for _, s := range sessions {
			fmt.Printf("%s  %s  %d joints\n", s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.JointCount)
		}
		return
	}

	id := sessionFlag
	if id == "" {
		if len(sessions) == 0 {
			log.Fatalf("no recorded session in %s", cfg.Recording.Database)
		}
		id = sessions[len(sessions)-1].ID
	}

	tl, err := store.LoadSession(id)
	if err != nil {
		log.Fatalf("could not load session: %s", err)
	}

	jointMap, err := joints.Load(cfg.JointNames)
	if err != nil {
		log.Fatalf("could not load joint names: %s", err)
	}

	opts := cfg.Renderer.Options()
	if fullFlag {
		opts.UpperBodyOnly = false
	}
	renderer, err := skeleton.NewRenderer(jointMap, opts)
	if err != nil {
		log.Fatalf("could not create skeleton renderer: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := replay.Render(ctx, tl, renderer, outFlag, replay.Options{
		Workers:  workersFlag,
		Start:    startFlag,
		Progress: os.Stderr,
	})
	if err != nil {
		log.Fatalf("could not render session %s: %s", id, err)
	}

	log.Printf("rendered %d frames of session %s: %d with skeleton, %d without", res.Frames, id, res.Overlaid, res.Bare)
}
