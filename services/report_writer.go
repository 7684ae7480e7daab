package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"mondaydownloader/models"
	"mondaydownloader/utils"
)

// ReportHeaders は実行レポートCSVの列です
var ReportHeaders = []string{"Run ID", "Group", "Item ID", "Email", "Files Saved", "Outcome", "Error"}

const (
	outcomeGroupFailed  = "GROUP_FAILED"
	outcomeGroupSkipped = "SKIPPED"
)

// ReportWriter は実行結果をCSVに書き出します
type ReportWriter struct {
	path string
}

// NewReportWriter は新しいレポートライターを作成します
func NewReportWriter(path string) *ReportWriter {
	return &ReportWriter{path: path}
}

// Write はレポートファイルを作成して集計結果を書き込みます
func (w *ReportWriter) Write(summary *models.RunSummary) error {
	utils.LogInfo("実行レポート '%s' を作成します", w.path)

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("レポートディレクトリ作成エラー: %w", err)
		}
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("CSVファイル作成エラー: %w", err)
	}
	defer file.Close()

	rows, err := WriteReport(file, summary)
	if err != nil {
		return err
	}

	utils.LogInfo("CSV書き込み完了: %d 行", rows)
	return nil
}

// WriteReport は集計結果をCSVとして out に書き込み、データ行数を返します
// アイテム1件につき1行、アイテムを持たない失敗・スキップのグループは1行で表します
func WriteReport(out io.Writer, summary *models.RunSummary) (int, error) {
	writer := csv.NewWriter(out)
	if err := writer.Write(ReportHeaders); err != nil {
		return 0, fmt.Errorf("ヘッダー書き込みエラー: %w", err)
	}

	rows := 0
	for _, group := range summary.Groups {
		for _, row := range reportRows(summary.RunID, group) {
			if err := writer.Write(row); err != nil {
				return rows, fmt.Errorf("行書き込みエラー: %w", err)
			}
			rows++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, fmt.Errorf("CSV書き込み完了エラー: %w", err)
	}
	return rows, nil
}

func reportRows(runID string, group models.GroupResult) [][]string {
	switch {
	case group.Err != nil:
		return [][]string{{runID, group.Title, "", "", "0", outcomeGroupFailed, group.Err.Error()}}
	case !group.Processed:
		return [][]string{{runID, group.Title, "", "", "0", outcomeGroupSkipped, ""}}
	}

	rows := make([][]string, 0, len(group.Items))
	for _, item := range group.Items {
		errText := ""
		if item.Err != nil {
			errText = item.Err.Error()
		}
		rows = append(rows, []string{
			runID,
			group.Title,
			strconv.FormatInt(item.Item.ItemID, 10),
			item.Item.Email,
			strconv.Itoa(item.Files),
			item.Outcome.String(),
			errText,
		})
	}
	return rows
}
