package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"volatiq/internal/domain/models"
	"volatiq/pkg/util"
)

// LoadBarsCSV reads a daily OHLCV history from a CSV file with the header
// Date,Open,High,Low,Close,Volume. Rows are returned sorted by date.
func LoadBarsCSV(path, symbol string) ([]models.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"Date", "Open", "High", "Low", "Close", "Volume"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv missing column %q", name)
		}
	}

	var bars []models.PriceBar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		d, ok := util.ParseDate(rec[col["Date"]])
		if !ok {
			return nil, fmt.Errorf("csv line %d: bad date %q", line, rec[col["Date"]])
		}
		b := models.PriceBar{Symbol: symbol, Date: d}
		for _, c := range []struct {
			name string
			dst  *float64
		}{
			{"Open", &b.Open}, {"High", &b.High}, {"Low", &b.Low},
			{"Close", &b.Close}, {"Volume", &b.Volume},
		} {
			v, err := strconv.ParseFloat(rec[col[c.name]], 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: bad %s %q", line, c.name, rec[col[c.name]])
			}
			*c.dst = v
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
