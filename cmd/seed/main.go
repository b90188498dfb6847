package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pharmiliar/cost-engine/internal/infrastructure/clients/postgres"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/observability"
	"github.com/pharmiliar/cost-engine/pkg/config"
)

// Seeds the services table from a charge-sheet CSV with columns:
// category, code, description, base_price, max_price. An empty code
// gets a generated one so every tier variant stays addressable.
func main() {
	csvPath := flag.String("csv", "charge_sheet.csv", "path to the charge sheet CSV")
	reset := flag.Bool("reset", false, "truncate the services table before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("cost-engine-seed", cfg.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	ctx := context.Background()

	if *reset {
		log.Info().Msg("truncating services table before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE services`); err != nil {
			log.Fatal().Err(err).Msg("failed to truncate services table")
		}
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("failed to open charge sheet")
	}
	defer file.Close()

	db := goqu.New("postgres", pgClient.DB())
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read CSV header")
	}
	col := columnIndex(header)

	inserted, skipped := 0, 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed row")
			skipped++
			continue
		}

		record := goqu.Record{
			"category":    strings.TrimSpace(field(row, col, "category")),
			"code":        codeOrGenerated(field(row, col, "code")),
			"description": strings.TrimSpace(field(row, col, "description")),
			"base_price":  parsePrice(field(row, col, "base_price")),
			"max_price":   parsePrice(field(row, col, "max_price")),
		}
		if record["description"] == "" {
			skipped++
			continue
		}

		query, args, err := db.Insert("services").Rows(record).ToSQL()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build insert query")
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Warn().Err(err).Interface("code", record["code"]).Msg("failed to insert service")
			skipped++
			continue
		}
		inserted++
	}

	log.Info().Int("inserted", inserted).Int("skipped", skipped).Msg("seeding complete")
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func codeOrGenerated(code string) string {
	code = strings.TrimSpace(code)
	if code != "" {
		return code
	}
	return "SVC-" + uuid.New().String()[:8]
}

func parsePrice(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return price
}
