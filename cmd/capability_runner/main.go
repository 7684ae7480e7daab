package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mondaydownloader/api"
	"mondaydownloader/config"
	"mondaydownloader/models"
	"mondaydownloader/services"
	"mondaydownloader/storage"
	"mondaydownloader/utils"
)

var rootCmd = &cobra.Command{
	Use:   "capability_runner",
	Short: "標準入力のJSON要求を実行し、結果をJSONで標準出力に書き出します",
	Long: `monday.com capability ランナー

入力例:
  {"capability": "download_attachments",
   "args": {"api_token": "...", "workspace_name": "...", "board_name": "...",
            "groups": ["..."], "group_folder_map": {"...": "/path/to/folder"}}}

ログは標準エラー出力に書き出します。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")

	var req services.CapabilityRequest
	if err := json.NewDecoder(cmd.InOrStdin()).Decode(&req); err != nil {
		_ = out.Encode(services.CapabilityResponse{Error: fmt.Sprintf("Error: %v", err), Capability: "unknown"})
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		_ = out.Encode(services.CapabilityResponse{Error: fmt.Sprintf("Error: %v", err), Capability: "unknown"})
		return err
	}
	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("ロガー初期化エラー: %w", err)
	}
	defer utils.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp := services.HandleCapability(ctx, cfg, req, func(ctx context.Context, cfg *config.Config) (*models.RunSummary, error) {
		job := services.NewAttachmentJob(cfg, api.NewMondayClient(cfg), storage.NewFileStore())
		return job.Run(ctx)
	})

	if resp.Error != "" {
		utils.LogError("capability %s が失敗しました: %s", resp.Capability, resp.Error)
	} else {
		utils.LogInfo("capability %s が完了しました: %s", resp.Capability, resp.Result)
	}

	return out.Encode(resp)
}
