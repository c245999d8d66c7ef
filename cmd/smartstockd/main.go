package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkincode/smartstock/config"
	"github.com/talkincode/smartstock/internal/adminapi"
	"github.com/talkincode/smartstock/internal/app"
	"github.com/talkincode/smartstock/internal/webserver"
	"go.uber.org/zap"
)

var (
	cfile    = flag.String("c", "smartstock.yml", "config file")
	showVer  = flag.Bool("v", false, "show version")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema")
	buildVer = "dev"
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("smartstockd", buildVer)
		return
	}

	cfg := config.LoadConfig(*cfile)
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	server := webserver.New(cfg)
	adminapi.NewHandler(application.Store(), application.Syncer(), application.ViewModel()).
		Register(server.Echo())

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zap.L().Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
