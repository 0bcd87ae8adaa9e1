package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/netip"

	"golang.org/x/exp/shiny/driver"

	"essaim.dev/kinectskel/bodystream"
	"essaim.dev/kinectskel/config"
	"essaim.dev/kinectskel/dmx"
	"essaim.dev/kinectskel/gesture"
	"essaim.dev/kinectskel/joints"
	"essaim.dev/kinectskel/kinect"
	"essaim.dev/kinectskel/kinectreader"
	"essaim.dev/kinectskel/recording"
	"essaim.dev/kinectskel/skeleton"
	"essaim.dev/kinectskel/viewer"
)

var (
	configFlag     string
	jointsFlag     string
	streamAddrFlag string
	recordFlag     bool
	mirrorFlag     bool
	depthFlag      bool
)

func init() {
	flag.StringVar(&configFlag, "config", "", "path to a yaml configuration file")
	flag.StringVar(&jointsFlag, "joints", "", "path to the joint names file, overrides the configuration")
	flag.StringVar(&streamAddrFlag, "stream-addr", "", "ip address and port the body tracker publishes to, overrides the configuration")
	flag.BoolVar(&recordFlag, "record", false, "record the session")
	flag.BoolVar(&mirrorFlag, "mirror", false, "mirror the displayed frames")
	flag.BoolVar(&depthFlag, "depth", false, "tint close objects using the depth stream")
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
	applyFlags(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}

	jointMap, err := joints.Load(cfg.JointNames)
	if err != nil {
		log.Fatalf("could not load joint names: %s", err)
	}

	renderer, err := skeleton.NewRenderer(jointMap, cfg.Renderer.Options())
	if err != nil {
		log.Fatalf("could not create skeleton renderer: %s", err)
	}

	addr, err := netip.ParseAddrPort(cfg.BodyStream.Addr)
	if err != nil {
		log.Fatalf("could not parse ip address: %s", err)
	}

	bodies, err := bodystream.NewClient(addr)
	if err != nil {
		log.Fatalf("could not create body stream client: %s", err)
	}
	defer bodies.Close()

	k, err := kinectreader.New(bodies)
	if err != nil {
		log.Fatalf("could not create kinect reader: %s", err)
	}
	// Runs after cancel, Close waits for k.Run to return.
	defer k.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := bodies.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("body stream stopped: %s", err)
		}
	}()

	kinectStopped := make(chan error, 1)
	go func() {
		if err := k.Run(ctx); err != nil {
			kinectStopped <- fmt.Errorf("could not run kinect reader: %w", err)
		}
	}()

	if err := kinect.WaitForConnection(ctx, k, cfg.ConnectTimeout()); err != nil {
		log.Fatalf("kinect did not connect: %s", err)
	}

	v := viewer.New(k, renderer, viewer.Options{
		Title:        "kinectskel",
		FrameSize:    k.ColorImage().Bounds().Size(),
		Scale:        cfg.Viewer.Scale,
		Mirror:       cfg.Viewer.Mirror,
		DepthOverlay: cfg.Viewer.DepthOverlay,
		MaxDepth:     uint16(cfg.Viewer.MaxDepthMM),
		Refresh:      cfg.RefreshInterval(),
	})

	if cfg.Recording.Enabled {
		store, err := recording.Open(cfg.Recording.Database, cfg.Recording.FrameDir)
		if err != nil {
			log.Fatalf("could not open recording store: %s", err)
		}
		defer store.Close()

		rec, err := store.CreateSession(jointMap.Count())
		if err != nil {
			log.Fatalf("could not create recording session: %s", err)
		}
		log.Printf("recording session %s", rec.Session().ID)
		v.Record(rec)
	}

	detector, err := gesture.NewDetector(jointMap, cfg.Renderer.ThresholdLevel)
	if err != nil {
		log.Fatalf("could not create gesture detector: %s", err)
	}

	var publishers gesture.Publishers
	if cfg.MQTT.Broker != "" {
		p := gesture.NewMQTTPublisher(gesture.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		})
		if err := p.Connect(ctx); err != nil {
			log.Fatalf("could not connect to mqtt broker: %s", err)
		}
		defer p.Disconnect()
		publishers = append(publishers, p)
	}

	if cfg.DMX.Enabled {
		dev, err := dmx.OpenDevice()
		if err != nil {
			log.Fatalf("could not open dmx device: %s", err)
		}
		defer dev.Close()

		light := dmx.NewGestureLight(dev, dmx.Fixture{Address: cfg.DMX.LeftAddress}, dmx.Fixture{Address: cfg.DMX.RightAddress})
		if err := light.Reset(); err != nil {
			log.Fatalf("could not reset dmx fixtures: %s", err)
		}
		publishers = append(publishers, light)
	}
	v.DetectGestures(detector, publishers)

	viewerStopped := make(chan error, 1)
	go func() {
		viewerStopped <- v.Run(ctx)
	}()

	driver.Main(v.Display)

	select {
	case err := <-kinectStopped:
		log.Printf("kinect stopped with error: %s", err)
	case err := <-viewerStopped:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("viewer stopped with error: %s", err)
		}
	}
}

func applyFlags(cfg *config.Config) {
	if jointsFlag != "" {
		cfg.JointNames = jointsFlag
	}
	if streamAddrFlag != "" {
		cfg.BodyStream.Addr = streamAddrFlag
	}
	if recordFlag {
		cfg.Recording.Enabled = true
	}
	if mirrorFlag {
		cfg.Viewer.Mirror = true
	}
	if depthFlag {
		cfg.Viewer.DepthOverlay = true
	}
}
