package main

import (
	"log"
	"os"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/auth"
	apigw "github.com/trezcool/kozi/services/gateway"
	logsvc "github.com/trezcool/kozi/services/logger"
	notifysvc "github.com/trezcool/kozi/services/notifier"
)

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	std := log.New(os.Stdout, "", 0)
	logger := logsvc.NewStdLogger(log.New(os.Stderr, "STUDIO : ", log.LstdFlags|log.Lshortfile), conf)
	notifier := notifysvc.NewConsoleNotifier(std)

	// the identity endpoints are un-authed, so the session gets its own
	// tokenless gateway; everything else rides the authenticated one
	authGW := apigw.NewHTTPGateway(conf, nil, nil, logger)
	session := auth.NewSession(authGW, logger, notifier, func(target string) {
		std.Println("Please sign in again: kozi-studio login -username USERNAME")
	})
	session.Init()
	if token := conf.Client.APIToken; token != "" {
		if err := session.Restore(token); err != nil {
			logger.Warn("restoring session from config", err)
		}
	}

	gw := apigw.NewHTTPGateway(conf, session, session, logger)

	cli := commandLine{
		conf:    conf,
		out:     std,
		log:     logger,
		notify:  notifier,
		session: session,
		gw:      gw,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
