package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lumerio/postpulse"
	"github.com/lumerio/postpulse/persistence/chroma"
	"github.com/lumerio/postpulse/persistence/chromem"
	"github.com/lumerio/postpulse/vector"

	mcpE "github.com/lumerio/postpulse/mcp"
	httpT "github.com/lumerio/postpulse/transport/http"
	natsT "github.com/lumerio/postpulse/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "postpulse",
		Usage: "PostPulse service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the PostPulse service",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Clear the collection before indexing",
				Value: false,
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".lumerio", "postpulse")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()

	var cfg postpulse.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	if cmd.Bool("reset") {
		cfg.ResetOnStart = true
	}

	var store vector.Store
	switch cfg.Vector.Backend {
	case "chroma":
		store = chroma.NewStore(cfg.Vector, cfg.Embedding.Dimension)

	case "chromem", "":
		cfg.Vector.Path = filepath.Join(path, "vectors")

		store, err = chromem.NewStore(cfg.Vector)
		if err != nil {
			return err
		}

	default:
		return postpulse.ErrUnsupportedStore
	}

	svc, err := postpulse.NewService(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = postpulse.LoggingMiddleware(log)(svc)

	endpoints := postpulse.EndpointSet{
		AddPosts:          postpulse.AddPostsEndpoint(svc),
		QuerySimilar:      postpulse.QuerySimilarEndpoint(svc),
		GetCount:          postpulse.GetCountEndpoint(svc),
		ClearBeforeNewRun: postpulse.ClearBeforeNewRunEndpoint(svc),
		ClearCollection:   postpulse.ClearCollectionEndpoint(svc),
	}

	natsURL := cmd.String("nats")
	if natsURL != "" {
		natsCreds := filepath.Join(path, "user.creds")

		idBytes, err := os.ReadFile(filepath.Join(path, "id"))
		if err != nil {
			return err
		}

		pipelineID := strings.TrimSpace(string(idBytes))

		opts := []nats.Option{
			nats.Name("PostPulse Server - " + pipelineID),
		}

		if _, err := os.Stat(natsCreds); err == nil {
			opts = append(opts, nats.UserCredentials(natsCreds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "postpulse",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "pipelines." + pipelineID + ".postpulse"

		root := srv.AddGroup(topic)
		natsT.AddEndpoints(root, endpoints)
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)

		endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		endpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
		endpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
		httpT.AddStreamableRouters(r, endpoints)

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
