package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// dataCmd groups cache inspection commands
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "캐시 데이터 상태",
	Long: `로컬 CSV 캐시의 크기와 유니버스 대비 커버리지를 확인합니다.

Example:
  go run ./cmd/quant data status
  go run ./cmd/quant data status --excluded`,
}

var dataStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "캐시 크기 및 커버리지",
	Long: `확인 항목:
- 캐시 파일 수 / 용량 (bytes, KB, MB, GB)
- 현재 수집 윈도우의 캐시 커버리지 (제외 규칙 통과 종목 기준)
- 제외된 종목과 사유 (--excluded)`,
	RunE: runDataStatus,
}

var dataShowExcluded bool

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataStatusCmd)

	dataStatusCmd.Flags().BoolVar(&dataShowExcluded, "excluded", false, "제외 종목 목록 출력")
}

func runDataStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Println("=== limitup Data Status ===")
	fmt.Println()

	usage, err := a.store.Usage()
	if err != nil {
		return fmt.Errorf("cache usage: %w", err)
	}

	fmt.Printf("📁 Cache (%s)\n", a.store.Dir())
	PrintSeparator()
	PrintKeyValue("Files", fmt.Sprintf("%d", len(usage.Files)), 5)
	PrintKeyValue("Size", fmt.Sprintf("%d bytes | %.2f KB | %.2f MB | %.4f GB",
		usage.Bytes, usage.KB(), usage.MB(), usage.GB()), 5)
	fmt.Println()

	snap, err := a.coverage(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("📊 Coverage (%s ~ %s)\n",
		snap.Start.Format("2006-01-02"), snap.End.Format("2006-01-02"))
	PrintSeparator()
	PrintKeyValue("Listed", fmt.Sprintf("%d", snap.Total), 8)
	PrintKeyValue("Eligible", fmt.Sprintf("%d", snap.Eligible), 8)
	PrintKeyValue("Excluded", fmt.Sprintf("%d", len(snap.Excluded)), 8)
	PrintKeyValue("Cached", fmt.Sprintf("%d (%.1f%%)", snap.Cached, snap.Coverage*100), 8)
	fmt.Println()

	if snap.Passed {
		PrintSuccess(fmt.Sprintf("Coverage gate passed (>= %.0f%%)", minCoverage*100))
	} else {
		PrintWarning(fmt.Sprintf("Coverage below %.0f%%: run `quant fetcher collect all`", minCoverage*100))
	}

	if dataShowExcluded && len(snap.Excluded) > 0 {
		items := make([]string, 0, len(snap.Excluded))
		for symbol, reason := range snap.Excluded {
			items = append(items, fmt.Sprintf("%s  %s", symbol, reason))
		}
		sort.Strings(items)
		fmt.Println("🚫 Excluded")
		PrintList(items)
	}

	return nil
}
