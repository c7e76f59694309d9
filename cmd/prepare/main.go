// Command prepare builds a training dataset and a fitted scaler from a
// daily bar history. Bars come from a CSV file or, with -config, from
// the ClickHouse bar store populated by the ingest path.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"volatiq/internal/domain/models"
	"volatiq/internal/repository"
	"volatiq/internal/services/features"
	"volatiq/internal/services/model"
	pkgch "volatiq/pkg/clickhouse"
	"volatiq/pkg/config"
	"volatiq/pkg/util"
)

func main() {
	var (
		input      = flag.String("input", "", "input CSV with Date,Open,High,Low,Close,Volume")
		configPath = flag.String("config", "", "config file path (reads bars from ClickHouse instead of CSV)")
		symbol     = flag.String("symbol", "", "symbol to prepare")
		fromStr    = flag.String("from", "", "start date (2006-01-02), ClickHouse source only")
		toStr      = flag.String("to", "", "end date (2006-01-02), ClickHouse source only")
		horizon    = flag.Int("horizon", 5, "forward volatility horizon in bars")
		outDir     = flag.String("out", "artifacts", "output directory")
	)
	flag.Parse()

	if *symbol == "" {
		log.Fatal("symbol is required")
	}

	bars, err := loadBars(*input, *configPath, *symbol, *fromStr, *toStr)
	if err != nil {
		log.Fatalf("load bars: %v", err)
	}
	log.Printf("loaded %d bars for %s", len(bars), *symbol)

	ds, err := features.PrepareDataset(bars, *horizon)
	if err != nil {
		log.Fatalf("prepare dataset: %v", err)
	}
	if ds.Len() == 0 {
		log.Fatalf("no usable rows: need more than %d bars for horizon %d", features.WarmUp(*horizon)+*horizon, *horizon)
	}
	log.Printf("dataset ready: %d rows, %d features", ds.Len(), models.FeatureCount)

	scaler, err := model.FitStandardScaler(ds.Features)
	if err != nil {
		log.Fatalf("fit scaler: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	scalerPath := filepath.Join(*outDir, "scaler.json")
	if err := scaler.Save(scalerPath); err != nil {
		log.Fatalf("save scaler: %v", err)
	}
	dataPath := filepath.Join(*outDir, "dataset.csv")
	if err := writeDataset(dataPath, ds); err != nil {
		log.Fatalf("write dataset: %v", err)
	}

	log.Printf("wrote %s and %s", scalerPath, dataPath)
}

func loadBars(input, configPath, symbol, fromStr, toStr string) ([]models.PriceBar, error) {
	if input != "" {
		return repository.LoadBarsCSV(input, symbol)
	}
	if configPath == "" {
		return nil, fmt.Errorf("either -input or -config is required")
	}

	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	defer client.Close()

	now := time.Now().UTC()
	from, to := now.AddDate(-5, 0, 0), now
	if t, ok := util.ParseDate(fromStr); ok {
		from = t
	}
	if t, ok := util.ParseDate(toStr); ok {
		to = t
	}

	store := repository.NewClickHouseBarStore(client.DB(), cfg.ClickHouse.Database+".daily_bars")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Health(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse health: %w", err)
	}
	return store.Query(ctx, symbol, from, to, 0)
}

func writeDataset(path string, ds models.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(models.FeatureNames(), "target")
	if err := w.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for i, row := range ds.Features {
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rec[len(rec)-1] = strconv.FormatFloat(ds.Targets[i], 'g', -1, 64)
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
