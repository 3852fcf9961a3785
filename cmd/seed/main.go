// Command seed loads a YAML-authored voice service graph into the database.
// Ids are derived from names, so the seed is idempotent: editing the file and
// re-running updates the graph in place.
package main

import (
	"context"
	"database/sql"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("LOG_LEVEL"))

	path := "seed.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read seed file", "error", err, "path", path)
		os.Exit(1)
	}

	graph, err := buildGraph(data)
	if err != nil {
		logger.Error("build graph", "error", err, "path", path)
		os.Exit(1)
	}
	if problems := graph.Validate(); len(problems) > 0 {
		for _, p := range problems {
			logger.Error("invalid graph", "problem", p)
		}
		os.Exit(1)
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := ivr.NewStore(db).SaveGraph(context.Background(), graph); err != nil {
		logger.Error("save graph", "error", err)
		os.Exit(1)
	}
	logger.Info("graph seeded",
		"service", graph.Service.Name,
		"service_id", graph.Service.ID,
		"elements", len(graph.Elements),
		"labels", len(graph.Labels),
	)
}
