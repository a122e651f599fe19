// cmd/wizkid-cli/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"wizkid-search/internal/app"
	"wizkid-search/internal/common/config"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
	answerquery "wizkid-search/internal/workers/search/answer-query"
	classifyintent "wizkid-search/internal/workers/search/classify-intent"
	"wizkid-search/pkg/registry"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "wizkid-cli",
		Usage:  "Ask questions against the in-process answer pipeline",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (defaults to configs/config.yaml discovery)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question and print every event as a JSON line",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "style",
						Usage: "Answer register (simple, expert)",
						Value: string(models.StyleSimple),
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Preferred LLM vendor (auto, openai, gemini)",
						Value: "auto",
					},
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Explicit subject, skipping extraction from the question",
					},
					&cli.Float64Flag{
						Name:  "lat",
						Usage: "Latitude for nearby searches",
					},
					&cli.Float64Flag{
						Name:  "lon",
						Usage: "Longitude for nearby searches",
					},
					&cli.IntFlag{
						Name:  "radius",
						Usage: "Search radius in meters for nearby searches",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up after this long",
						Value: 60 * time.Second,
					},
				},
			},
			{
				Name:      "classify",
				Usage:     "Print the intent and subject of a question",
				ArgsUsage: "<question>",
				Action:    classifyCommand,
			},
			{
				Name:   "registry",
				Usage:  "Validate the activity registry and list its task types",
				Action: registryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Path to the activity registry",
						Value: "configs/activity-registry.json",
					},
				},
			},
		},
	}
}

func questionArg(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("a question is required")
	}
	return q, nil
}

func classifyCommand(c *cli.Context) error {
	q, err := questionArg(c)
	if err != nil {
		return err
	}
	return json.NewEncoder(c.App.Writer).Encode(map[string]string{
		"intent":  string(classifyintent.Classify(q)),
		"subject": classifyintent.SubjectOf(q),
	})
}

func registryCommand(c *cli.Context) error {
	reg, err := registry.LoadRegistry(c.String("path"))
	if err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("invalid registry: %w", err)
	}
	for _, a := range reg.Activities {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", a.TaskType, a.Category, a.Status)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	q, err := questionArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	zapLog := logger.Build(logger.Options{Level: c.String("log-level"), Format: "console", Output: "stderr"})
	defer zapLog.Sync()
	appLog := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	pipeline, err := app.Build(ctx, cfg, nil, appLog, app.Options{})
	if err != nil {
		return err
	}
	defer pipeline.Close()

	req := &models.AskRequest{
		Query:    q,
		Subject:  c.String("subject"),
		Style:    models.Style(c.String("style")),
		Provider: c.String("provider"),
		Radius:   c.Int("radius"),
	}
	if c.IsSet("lat") || c.IsSet("lon") {
		req.Coords = &models.Coords{Lat: c.Float64("lat"), Lon: c.Float64("lon")}
	}

	enc := json.NewEncoder(c.App.Writer)
	return pipeline.Answer.Answer(ctx, req, answerquery.SinkFunc(func(ev models.Event) error {
		return enc.Encode(ev)
	}))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
