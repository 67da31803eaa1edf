// Command mhttpd-example is a minimal host exercising the mhttpd library
// surface: it starts a daemon, serves a JSON payload compressed with
// gzip or brotli depending on the request's Accept-Encoding header, and
// echoes back the query arguments it was given.
package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumenhttp/mhttpd"
	"github.com/lumenhttp/mhttpd/internal/logsink"
)

type statusPayload struct {
	Status string            `json:"status"`
	Query  map[string]string `json:"query,omitempty"`
}

func rootHandler() mhttpd.Handler {
	return mhttpd.HandlerFunc(func(conn *mhttpd.Connection) mhttpd.Action {
		query := make(map[string]string)
		mhttpd.GetConnectionValues(conn, mhttpd.QueryArgumentKind, func(name, value string) bool {
			query[name] = value
			return true
		})

		body, err := json.Marshal(statusPayload{Status: "ok", Query: query})
		if err != nil {
			resp := mhttpd.CreateResponseFromBuffer([]byte("internal error"), mhttpd.PersistentBorrow)
			mhttpd.QueueResponse(conn, 500, resp)
			return mhttpd.Continue
		}

		acceptEncoding, _ := mhttpd.LookupConnectionValue(conn, mhttpd.RequestHeaderKind, "Accept-Encoding")
		encoding := negotiateEncoding(acceptEncoding)

		resp, err := compressResponse(body, encoding)
		if err != nil {
			resp = mhttpd.CreateResponseFromBuffer([]byte("internal error"), mhttpd.PersistentBorrow)
			mhttpd.QueueResponse(conn, 500, resp)
			return mhttpd.Continue
		}
		resp.AddHeader("Content-Type", "application/json")
		mhttpd.QueueResponse(conn, 200, resp)
		return mhttpd.Continue
	})
}

func main() {
	cfg := loadConfig()

	out := zerolog.ConsoleWriter{Out: os.Stderr}
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.isDevelopment() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	sink := logsink.Default(cfg.isDevelopment())
	env := mhttpd.DefaultEnvironment()
	env.Sink = sink

	d, err := mhttpd.StartDaemon(env, mhttpd.Options{
		BindAddress:           cfg.addr,
		Mode:                  mhttpd.WorkerPool,
		WorkerCount:           cfg.workerCount,
		ConnectionMemoryLimit: cfg.connectionMemoryKiB * 1024,
		ConnectionLimit:       cfg.connectionLimit,
		PerIpConnectionLimit:  cfg.perIPConnectionLimit,
		ConnectionTimeout:     cfg.idleTimeout,
		ShutdownGracePeriod:   cfg.shutdownGrace,
		ServerHeader:          "mhttpd-example",
		DefaultHandler:        rootHandler(),
	})
	if err != nil {
		log.Fatalf("mhttpd: failed to start: %v", err)
	}
	logger.Info().Str("addr", d.Addr().String()).Msg("listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	shutdownStart := time.Now()
	d.StopDaemon()
	logger.Info().Dur("elapsed", time.Since(shutdownStart)).Msg("stopped")
}
