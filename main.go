package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jvaillant/retrace/internal/backend"
	"github.com/jvaillant/retrace/internal/config"
	"github.com/jvaillant/retrace/internal/engine"
	"github.com/jvaillant/retrace/internal/source"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		rootFlag    = flag.String("root", "", "recordings root (overrides config)")
		channelFlag = flag.String("channel", "", "channel to play (overrides config)")
		atFlag      = flag.String("at", "", "RFC3339 instant to start playback from")
		listFlag    = flag.Bool("list", false, "list channels and their time spans, then exit")
		debugFlag   = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debugFlag {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("loading configuration")
		return 1
	}

	root := cfg.RecordingsRoot
	if *rootFlag != "" {
		root = *rootFlag
	}
	if root == "" {
		log.Error().Msg("no recordings root configured (set recordings_root or pass -root)")
		return 1
	}

	cache, err := source.OpenDefaultCache()
	if err != nil {
		log.Warn().Err(err).Msg("duration cache unavailable, scans will decode every file")
	} else {
		defer cache.Close()
	}

	src := source.NewDirSource(root, cache)
	channels, err := source.LoadChannels(src)
	if err != nil {
		log.Error().Err(err).Msg("loading channels")
		return 1
	}
	if len(channels) == 0 {
		log.Error().Str("root", root).Msg("no channels found")
		return 1
	}

	if cache != nil {
		existing := make(map[string]bool)
		for _, c := range channels {
			for _, seg := range c.Segments() {
				existing[seg.Path] = true
			}
		}
		if err := cache.Prune(existing); err != nil {
			log.Debug().Err(err).Msg("pruning duration cache")
		}
	}

	if *listFlag {
		for _, c := range channels {
			start, end := c.Span()
			fmt.Printf("%-20s %3d segments  %s .. %s\n",
				c.Name(), c.Len(), start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		return 0
	}

	eng := engine.New(backend.New(), channels, log)
	defer eng.Release()

	eng.SetPollInterval(cfg.PollInterval())
	eng.SetPlaybackRate(cfg.Rate)
	eng.SetAmplification(cfg.AmplificationDb)

	channel := cfg.DefaultChannel
	if *channelFlag != "" {
		channel = *channelFlag
	}
	if channel != "" && !eng.SetActiveChannel(channel) {
		log.Error().Str("channel", channel).Msg("unknown channel")
		return 1
	}

	var at *time.Time
	if *atFlag != "" {
		t, err := time.Parse(time.RFC3339, *atFlag)
		if err != nil {
			log.Error().Err(err).Str("at", *atFlag).Msg("invalid -at instant")
			return 1
		}
		at = &t
	}

	onPosition := func(pos time.Time) {
		fmt.Printf("\r%s", pos.Format(time.RFC3339))
	}

	if !eng.Play(at, onPosition) {
		log.Error().Msg("playback failed to start")
		return 1
	}
	log.Info().Str("channel", eng.ActiveChannel()).Msg("playing; enter an RFC3339 instant to seek, or pause/resume/stop/quit")

	seeks := engine.NewSeekProcessor(eng, cfg.Debounce())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-sigCh:
			fmt.Println()
			return 0
		case line, ok := <-lines:
			if !ok {
				return 0
			}
			switch line {
			case "":
			case "quit", "q":
				fmt.Println()
				return 0
			case "pause":
				eng.Pause()
			case "resume":
				eng.Resume()
			case "stop":
				eng.Stop()
			default:
				t, err := time.Parse(time.RFC3339, line)
				if err != nil {
					log.Warn().Str("input", line).Msg("not a command or RFC3339 instant")
					continue
				}
				if !seeks.Submit(t) {
					log.Debug().Time("at", t).Msg("seek not applied")
				}
			}
		}
	}
}
