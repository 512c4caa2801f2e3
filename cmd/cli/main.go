package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository"
	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/services"
	"github.com/wadjakorntonsri/linkpulse/pkg/logger"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

const usage = "expected 'export', 'import' or 'set-admin' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	adminCmd := flag.NewFlagSet("set-admin", flag.ExitOnError)
	adminUser := adminCmd.String("username", "admin", "admin username")
	adminPass := adminCmd.String("password", "", "new admin password")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	logger.Initialize(cfg.AppEnv, cfg.LogLevel)

	repo, err := repository.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to storage")
	}
	defer repo.Close()
	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = doExport(ctx, repo, os.Stdout)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = doImport(ctx, repo, *importFile)
	case "set-admin":
		adminCmd.Parse(os.Args[2:])
		if *adminPass == "" {
			adminCmd.PrintDefaults()
			os.Exit(1)
		}
		_, err = services.NewAuthService(repo, cfg.JWTSecret).EnsureAdmin(ctx, *adminUser, *adminPass, true)
		if err == nil {
			log.Info().Str("username", *adminUser).Msg("Admin password set")
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("Command failed")
	}
}

func doExport(ctx context.Context, repo ports.LinkRepository, out io.Writer) error {
	links, err := repo.ListLinks(ctx)
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}
	if links == nil {
		links = []domain.Link{}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

func doImport(ctx context.Context, repo ports.LinkRepository, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	n, err := importLinks(ctx, repo, file)
	if err != nil {
		return err
	}
	log.Info().Int("imported", n).Msg("Import finished")
	return nil
}

// importLinks adds every link whose URL is not already present. Ids are
// reassigned by the store; the original date_added is kept when set.
func importLinks(ctx context.Context, repo ports.LinkRepository, r io.Reader) (int, error) {
	var links []domain.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return 0, fmt.Errorf("decode links: %w", err)
	}

	existing, err := repo.ListLinks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list links: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[l.URL] = true
	}

	count := 0
	for _, l := range links {
		l.URL = strings.TrimSpace(l.URL)
		l.Title = strings.TrimSpace(l.Title)
		if l.URL == "" || l.Title == "" {
			log.Warn().Int64("id", l.ID).Msg("Skipping link without title or url")
			continue
		}
		if seen[l.URL] {
			log.Info().Str("url", l.URL).Msg("Skipping existing link")
			continue
		}

		l.ID = 0
		if l.DateAdded.IsZero() {
			l.DateAdded = time.Now().UTC().Truncate(time.Millisecond)
		}
		if err := repo.CreateLink(ctx, &l); err != nil {
			log.Error().Err(err).Str("url", l.URL).Msg("Failed to import link")
			continue
		}
		seen[l.URL] = true
		count++
	}
	return count, nil
}
