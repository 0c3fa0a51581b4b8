package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pharma-deck/app"
	"pharma-deck/config"
	"pharma-deck/services"
	"pharma-deck/storage"
)

var logger = zap.NewNop()

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "deckctl",
		Usage: "Compound enrichment pipeline: ingest, queue and backup",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		After: func(*cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Resolve drug names and write a new card version for each",
				ArgsUsage: "NAME [NAME...]",
				Action:    ingestCommand,
			},
			{
				Name:   "seed",
				Usage:  "Load the ingest queue from a CSV file",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "CSV with columns rank, canonical_name, rxcui, priority_score, category",
						Required: true,
					},
				},
			},
			{
				Name:   "worker",
				Usage:  "Drain the ingest queue once",
				Action: workerCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "requeue-below",
						Usage: "Reset failed items with fewer attempts to pending before draining (0 = off)",
						Value: 0,
					},
				},
			},
			{
				Name:   "backup",
				Usage:  "Dump the database with pg_dump and upload it to the S3 archive",
				Action: backupCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "keep",
						Usage: "Number of backups to keep",
						Value: 4,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := zapcore.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.String("log-level"), err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func loadApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.New(c.Context, cfg, logger)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one drug name is required")
	}
	deck, err := loadApp(c)
	if err != nil {
		return err
	}

	var failed int
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	for _, name := range c.Args().Slice() {
		res := deck.Ingest.Ingest(c.Context, name)
		if !res.OK {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d ingestions failed", failed, c.NArg()), 1)
	}
	return nil
}

func seedCommand(c *cli.Context) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	items, err := services.ParseQueueCSV(f)
	if err != nil {
		return err
	}
	deck, err := loadApp(c)
	if err != nil {
		return err
	}
	n, err := deck.Store.SeedQueue(c.Context, items)
	if err != nil {
		return err
	}
	logger.Info("Queue befüllt", zap.Int("items", n))
	return nil
}

func workerCommand(c *cli.Context) error {
	deck, err := loadApp(c)
	if err != nil {
		return err
	}
	if below := c.Int("requeue-below"); below > 0 {
		n, err := deck.Store.RequeueErrors(c.Context, below)
		if err != nil {
			return err
		}
		logger.Info("Fehlgeschlagene Einträge zurückgesetzt", zap.Int64("items", n))
	}

	worker, err := deck.NewWorker()
	if err != nil {
		return err
	}
	defer worker.Release()

	report, err := worker.Drain(c.Context)
	if err != nil {
		return err
	}
	return json.NewEncoder(c.App.Writer).Encode(report)
}

func backupCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	archive, err := storage.NewArchive(c.Context, cfg)
	if err != nil {
		return err
	}

	logger.Info("Starte Backup-Prozess...")
	dump, err := createDump(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}

	key := storage.BackupKey(time.Now())
	link, err := archive.UploadFile(c.Context, key, dump, "application/gzip")
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	logger.Info("Backup hochgeladen", zap.String("link", link), zap.Int("bytes", len(dump)))

	deleted, err := archive.RotateBackups(c.Context, "backups/", c.Int("keep"))
	if err != nil {
		return fmt.Errorf("rotate backups: %w", err)
	}
	logger.Info("Backup-Prozess erfolgreich abgeschlossen.", zap.Int("rotated", deleted))
	return nil
}

func pgDumpArgs(cfg *config.Config) []string {
	return []string{
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w",
	}
}

func createDump(ctx context.Context, cfg *config.Config) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump", pgDumpArgs(cfg)...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	data, err := gzipAll(stdout)
	if err != nil {
		_ = cmd.Wait()
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func gzipAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := io.Copy(w, r); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
