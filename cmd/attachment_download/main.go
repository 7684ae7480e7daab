package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mondaydownloader/api"
	"mondaydownloader/config"
	"mondaydownloader/services"
	"mondaydownloader/storage"
	"mondaydownloader/utils"
)

var (
	groupsFile   string
	boardName    string
	workspace    string
	days         int
	groupWorkers int
	itemWorkers  int
	maxItems     int
	reportPath   string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "attachment_download",
	Short: "monday.com の添付ファイルをグループ別フォルダにダウンロードします",
	Long: `monday.com 添付ファイルダウンロードツール

対象ステータスのアイテムから添付ファイルをダウンロードし、
ステータスを更新します。グループ単位・アイテム単位で並列に処理します。

環境変数:
  MONDAY_API_TOKEN        monday.com APIトークン (必須)
  MONDAY_BOARD            対象ボード名 (必須)
  MONDAY_WORKSPACE        ワークスペース名
  TARGET_STATUS           処理対象のステータス (デフォルト: Retry)
  NEW_STATUS              処理後のステータス (デフォルト: In Queue)
  DAYS_TO_PROCESS         対象とする日数 (デフォルト: 1)
  GROUP_WORKERS           グループの並列数 (デフォルト: 7)
  ITEM_WORKERS            アイテムの並列数 (デフォルト: 10)
  DOWNLOAD_BASE_DIR       保存先のベースディレクトリ (デフォルト: downloads)
  GROUPS_FILE             グループと保存先フォルダの対応 (YAML)
  REPORT_CSV              実行レポートの出力先`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&groupsFile, "groups-file", "", "グループ設定YAML（GROUPS_FILE を上書き）")
	flags.StringVar(&boardName, "board", "", "対象ボード名（MONDAY_BOARD を上書き）")
	flags.StringVar(&workspace, "workspace", "", "ワークスペース名（MONDAY_WORKSPACE を上書き）")
	flags.IntVar(&days, "days", -1, "対象とする日数（DAYS_TO_PROCESS を上書き）")
	flags.IntVar(&groupWorkers, "group-workers", 0, "グループの並列数（0の場合は設定値を使用）")
	flags.IntVar(&itemWorkers, "item-workers", 0, "アイテムの並列数（0の場合は設定値を使用）")
	flags.IntVar(&maxItems, "max-items", -1, "1グループで処理するアイテム数の上限（0は無制限）")
	flags.StringVar(&reportPath, "report", "", "実行レポートCSVの出力先")
	flags.StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		return err
	}
	if err := applyFlags(cfg); err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		return err
	}

	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("ロガー初期化エラー: %w", err)
	}
	defer utils.Sync()

	if err := cfg.Validate(); err != nil {
		utils.LogError("設定が不正です: %v", err)
		return err
	}

	utils.LogInfo("monday.com 添付ファイルダウンロードツール (v1.0.0)")
	utils.LogInfo("設定読み込み完了 (Groups: %d, Group Workers: %d, Item Workers: %d)",
		len(cfg.Groups), cfg.GroupWorkers, cfg.ItemWorkers)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 必要なサービスの初期化
	client := api.NewMondayClient(cfg)
	job := services.NewAttachmentJob(cfg, client, storage.NewFileStore())

	summary, err := job.Run(ctx)
	if err != nil {
		utils.LogError("ダウンロード処理に失敗しました: %v", err)
		return err
	}

	utils.LogInfo("Groups processed: %d / %d", summary.GroupsProcessed, summary.TotalGroups)
	utils.LogInfo("Success: %d", summary.Success)
	utils.LogInfo("Failed: %d", summary.Failed)
	utils.LogInfo("処理が完了しました。合計実行時間: %s", time.Since(startTime))

	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return nil
}

// applyFlags は指定されたフラグで設定を上書きします
func applyFlags(cfg *config.Config) error {
	if boardName != "" {
		cfg.BoardName = boardName
	}
	if workspace != "" {
		cfg.WorkspaceName = workspace
	}
	if days >= 0 {
		cfg.DaysToProcess = days
	}
	if groupWorkers > 0 {
		cfg.GroupWorkers = groupWorkers
	}
	if itemWorkers > 0 {
		cfg.ItemWorkers = itemWorkers
	}
	if maxItems >= 0 {
		cfg.MaxItemsPerGroup = maxItems
	}
	if reportPath != "" {
		cfg.ReportCSV = reportPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if groupsFile != "" {
		cfg.GroupsFile = groupsFile
		return cfg.LoadGroups()
	}
	return nil
}
