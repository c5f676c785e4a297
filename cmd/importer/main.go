package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/openclinic/docpipeline/internal/bootstrap"
	"github.com/openclinic/docpipeline/internal/config"
	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/observability/logging"
)

// importer walks a directory and pushes every regular file through the
// batch pipeline. Meant for one-off backfills of existing archives.
func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "directory to import (required)")
	therapistID := flag.String("therapist", "", "owning therapist id (required)")
	clientID := flag.String("client", "", "optional client id")
	compress := flag.Bool("compress", false, "gzip stored blobs above the configured threshold")
	flag.Parse()

	if *dir == "" || *therapistID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("docpipeline-importer", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	files, err := collectFiles(*dir, *compress)
	if err != nil {
		log.Fatalf("scan directory: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no files found under %s", *dir)
	}
	slog.Info("import starting", "dir", *dir, "files", len(files))

	result, err := app.Batch.ProcessBatch(ctx, files, *therapistID, *clientID)
	if err != nil {
		log.Fatalf("batch import: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatalf("encode result: %v", err)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func collectFiles(root string, compress bool) ([]domain.BatchFile, error) {
	var files []domain.BatchFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, domain.BatchFile{
			Name: d.Name(),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
			Compress: compress,
		})
		return nil
	})
	return files, err
}
