package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// Stats summarizes a batch for reporting.
type Stats struct {
	Providers   map[string]int `json:"providers"`
	Errors      map[string]int `json:"errors"`
	Amounts     AmountStats    `json:"amounts"`
	Performance TimingStats    `json:"performance"`
	Total       int            `json:"total_files"`
	Successful  int            `json:"successful"`
	Failed      int            `json:"failed"`
	Skipped     int            `json:"skipped"`
	SuccessRate float64        `json:"success_rate"`
}

// AmountStats aggregates the amounts of successful documents.
type AmountStats struct {
	TotalSource      decimal.Decimal `json:"total_usd"`
	TotalConverted   decimal.Decimal `json:"total_converted"`
	AverageSource    decimal.Decimal `json:"average_usd"`
	AverageConverted decimal.Decimal `json:"average_converted"`
	MaxSource        decimal.Decimal `json:"max_usd"`
	MinSource        decimal.Decimal `json:"min_usd"`
}

// TimingStats aggregates per-document processing time.
type TimingStats struct {
	Total   time.Duration `json:"total_processing_time"`
	Average time.Duration `json:"average_time_per_file"`
	Fastest time.Duration `json:"fastest_file"`
	Slowest time.Duration `json:"slowest_file"`
}

// ComputeStats aggregates results.
func ComputeStats(results []model.DocumentResult) Stats {
	stats := Stats{
		Providers: make(map[string]int),
		Errors:    make(map[string]int),
		Total:     len(results),
	}
	if len(results) == 0 {
		return stats
	}

	var amounts int
	for i, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			stats.Successful++
		case model.StatusSkipped:
			stats.Skipped++
		default:
			stats.Failed++
			msg := r.ErrorMessage
			if msg == "" {
				msg = "Unknown error"
			}
			stats.Errors[msg]++
		}

		p := &stats.Performance
		p.Total += r.Duration
		if i == 0 || r.Duration < p.Fastest {
			p.Fastest = r.Duration
		}
		if r.Duration > p.Slowest {
			p.Slowest = r.Duration
		}

		if r.Status != model.StatusSuccess || r.Record == nil {
			continue
		}

		stats.Providers[r.Record.Provider]++

		a := &stats.Amounts
		a.TotalSource = a.TotalSource.Add(r.Record.AmountSource)
		a.TotalConverted = a.TotalConverted.Add(r.Record.AmountConverted)
		if amounts == 0 || r.Record.AmountSource.GreaterThan(a.MaxSource) {
			a.MaxSource = r.Record.AmountSource
		}
		if amounts == 0 || r.Record.AmountSource.LessThan(a.MinSource) {
			a.MinSource = r.Record.AmountSource
		}
		amounts++
	}

	stats.SuccessRate = float64(stats.Successful) / float64(stats.Total) * 100
	stats.Performance.Average = stats.Performance.Total / time.Duration(len(results))

	if amounts > 0 {
		n := decimal.NewFromInt(int64(amounts))
		stats.Amounts.AverageSource = stats.Amounts.TotalSource.Div(n).Round(2)
		stats.Amounts.AverageConverted = stats.Amounts.TotalConverted.Div(n).Round(2)
	}

	return stats
}
