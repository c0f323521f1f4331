// Command indexer runs an indexing pipeline over a file of entity
// records: it normalizes scores, embeds labels and upserts the entities
// into the pgvector-backed entity index.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/textgraph/enricher/database"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/indexing"
	loadSql "github.com/textgraph/enricher/sql"
)

func main() {
	configPath := flag.String("config", "indexing.yaml", "path to the indexing configuration file")
	recordsPath := flag.String("records", "", "path to the entity records file (one JSON object per line)")
	flag.Parse()

	if *recordsPath == "" {
		log.Fatal("-records is required")
	}

	logger := slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
	}))

	cfg, err := indexing.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load indexing configuration: %v", err)
	}

	records, err := readRecords(*recordsPath)
	if err != nil {
		log.Fatalf("Failed to read entity records: %v", err)
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		log.Fatalf("Failed to load database configuration: %v", err)
	}
	db := helper.NewDatabase("indexer", dbConfig, logger)
	defer db.Close()

	if err := loadSql.Init(db.Instance); err != nil {
		log.Fatalf("Failed to initialize database extensions: %v", err)
	}

	index, err := database.NewEntityIndexDBHandler(db, cfg.Destination.Dimension, false)
	if err != nil {
		log.Fatalf("Failed to create entity index handler: %v", err)
	}

	embedder, err := indexing.DefaultEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	executor, err := indexing.NewExecutor(cfg, embedder, index, logger)
	if err != nil {
		log.Fatalf("Failed to create executor: %v", err)
	}

	indexed, skipped, err := executor.Run(context.Background(), records)
	if err != nil {
		log.Fatalf("Indexing failed after %d entities: %v", indexed, err)
	}

	logger.Info("Indexing finished", slog.Int("indexed", indexed), slog.Int("skipped", skipped))
}

// readRecords reads entity records from a file with one JSON object per
// line. Blank lines are skipped.
func readRecords(path string) ([]indexing.EntityRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, helper.NewError("os.Open", err)
	}
	defer file.Close()

	var records []indexing.EntityRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record indexing.EntityRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, helper.NewError("json.Unmarshal", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("bufio.Scanner", err)
	}
	return records, nil
}
