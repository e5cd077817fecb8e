// Corpus seed loader. Reads a YAML file of snippets, ingests them into
// the corpus database and computes their embeddings eagerly so the
// service starts with a searchable index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/paideia-app/paideia/internal/domain/corpus"
	"github.com/paideia-app/paideia/internal/infra/eventbus"
	"github.com/paideia-app/paideia/internal/infra/sqlite"
)

type seedFile struct {
	Snippets []seedSnippet `yaml:"snippets"`
}

type seedSnippet struct {
	Language string `yaml:"language"`
	Category string `yaml:"category"`
	Text     string `yaml:"text"`
	Citation string `yaml:"citation"`
	License  string `yaml:"license"`
}

func main() {
	seedPath := flag.String("seed", "corpus.yaml", "Path to the YAML seed file")
	dbPath := flag.String("db", "paideia.db", "Path to the SQLite database")
	flag.Parse()

	if err := load(*seedPath, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func load(seedPath, dbPath string) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if len(seed.Snippets) == 0 {
		return fmt.Errorf("seed file %q declares no snippets", seedPath)
	}

	db, err := sqlite.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close() //nolint:errcheck
	if err := sqlite.MigrateUp(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := corpus.NewStore(db, 0)
	ingest := corpus.NewIngestService(store, eventbus.New())
	embedSvc := corpus.NewEmbedderService(store, corpus.NewHashingEmbedder(), zap.NewNop())

	ctx := context.Background()
	stored := 0
	for i, s := range seed.Snippets {
		created, err := ingest.Ingest(ctx, corpus.CreateSnippetInput{
			Language: s.Language,
			Category: corpus.Category(s.Category),
			Text:     s.Text,
			Citation: s.Citation,
			License:  s.License,
		})
		if err != nil {
			return fmt.Errorf("snippet %d: %w", i, err)
		}
		stored += len(created)
	}

	if err := embedSvc.EmbedPending(ctx); err != nil {
		return fmt.Errorf("embed snippets: %w", err)
	}

	fmt.Printf("loaded %d snippets (%d rows) into %s\n", len(seed.Snippets), stored, dbPath)
	return nil
}
