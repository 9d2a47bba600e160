package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"zju-course-assistant/internal/auther"
	"zju-course-assistant/internal/courses"
	"zju-course-assistant/internal/session"
	"zju-course-assistant/internal/store"
	"zju-course-assistant/internal/teachers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	auth := auther.New(cfg.SSOLoginURL, cfg.SSOPubKeyURL, cfg.ZdbkBaseURL)
	sup := session.NewSupervisor(auth, st)
	harvester := teachers.NewHarvester(st, cfg.ChalaoshiBaseURL, cfg.TeacherSeedPath)
	fetcher := courses.NewFetcher(sup, cfg.ZdbkBaseURL, harvester)

	app := NewApp(sup, fetcher, harvester)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChan
		cancel()
	}()

	app.Run(ctx, cfg.Addr)
}
