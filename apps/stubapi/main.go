package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	echostub "github.com/trezcool/kozi/apps/stubapi/echo"
	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
	dummygw "github.com/trezcool/kozi/services/gateway/dummy"
	logsvc "github.com/trezcool/kozi/services/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	std := log.New(os.Stdout, "STUB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std, conf)
	} else {
		rollbar := logsvc.NewRollbarLogger(std, conf)
		rollbar.Enable(true)
		logger = rollbar
	}

	store := dummygw.Open()
	seedDemoData(store)

	// =========================================================================
	// Start Stub API Service

	logger.Info(fmt.Sprintf("Stub API initializing : version %q", conf.Build))
	defer logger.Info("Stub API stopped")

	server := echostub.NewServer(echostub.Options{
		Conf:           conf,
		Logger:         logger,
		Store:          store,
		TranscodeDelay: 15 * time.Second,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

// seedDemoData loads a draft course to author against and a published
// one to browse.
func seedDemoData(store *dummygw.Gateway) {
	now := time.Now().UTC()
	price := 14900

	store.SeedCourse(course.Course{
		ID:     "crs-swahili-101",
		Title:  "Swahili for Beginners",
		Status: course.StatusDraft,
		Sections: []course.Section{
			{
				ID:       "sec-1",
				Title:    "Greetings",
				Position: 1,
				Chapters: []course.Chapter{
					{ID: "chp-1", Title: "Habari!", Position: 1},
					{ID: "chp-2", Title: "Introductions", Position: 2},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})

	store.SeedCourse(course.Course{
		ID:          "crs-go-basics",
		Title:       "Go Basics",
		Description: "A hands-on introduction to Go.",
		Status:      course.StatusPublished,
		Price:       &price,
		Sections: []course.Section{
			{
				ID:       "sec-go-1",
				Title:    "Getting Started",
				Position: 1,
				Chapters: []course.Chapter{
					{
						ID:       "chp-go-1",
						Title:    "Hello, World",
						Position: 1,
						Video:    &course.Video{ID: "vid-go-1", Status: course.VideoReady},
					},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
}
