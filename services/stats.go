package services

import (
	"fmt"
	"strings"

	"sublet-scraper/models"
	"sublet-scraper/storage"
	"sublet-scraper/utils"
)

// StatsService reports on the persisted stores: one section per tabular
// file, one aggregate section for the keyed database.
type StatsService struct {
	logger *utils.Logger
}

func NewStatsService(logger *utils.Logger) *StatsService {
	return &StatsService{logger: logger}
}

// Collect gathers statistics from the store.
func (s *StatsService) Collect(store storage.Store) (*models.StoreStats, error) {
	stats, err := store.Stats()
	if err != nil {
		return nil, fmt.Errorf("stats: collect: %w", err)
	}
	return stats, nil
}

// Print renders the statistics report to stdout.
func (s *StatsService) Print(r *models.StoreStats) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  LISTING STORE STATISTICS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Tabular Log Files\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.Files) == 0 {
		fmt.Printf("  No tabular files yet\n")
	}
	for _, f := range r.Files {
		fmt.Printf("  %s\n", f.Path)
		fmt.Printf("    Entries    : %d\n", f.Entries)
		if f.FirstScrape != "" {
			fmt.Printf("    Date range : %s to %s\n", f.FirstScrape, f.LastScrape)
		}
		fmt.Printf("    File size  : %.2f KB\n", float64(f.SizeBytes)/1024)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Keyed Database\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total listings : \033[1m%d\033[0m\n", r.TotalListings)
	if r.AveragePrice > 0 {
		fmt.Printf("  Price range    : \033[1;32m$%d - $%d\033[0m\n", r.MinPrice, r.MaxPrice)
		fmt.Printf("  Average price  : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Printf("  With images    : %d\n", r.WithImages)

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}
