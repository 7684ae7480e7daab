package main

import (
	"os"

	"github.com/spf13/cobra"

	"mondaydownloader/api"
	"mondaydownloader/config"
	"mondaydownloader/utils"
)

var rootCmd = &cobra.Command{
	Use:   "auth_check",
	Short: "monday.com APIの認証を確認します",
	Long: `monday.com 認証確認ツール

環境変数:
  MONDAY_API_TOKEN    monday.com APIトークン (必須)
  MONDAY_API_URL      APIエンドポイント (デフォルト: https://api.monday.com/v2)
  MONDAY_API_VERSION  APIバージョン (デフォルト: 2024-10)

説明:
  このツールはmonday.com APIの認証情報が正しく設定されているかを確認します。
  認証が成功すれば、他のツールも正常に動作する可能性が高いです。`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.LogInfo("monday.com 認証確認ツール")

		// 設定の読み込み
		cfg, err := config.LoadConfig()
		if err != nil {
			utils.LogError("設定の読み込みに失敗しました: %v", err)
			return err
		}

		client := api.NewMondayClient(cfg)

		// 認証チェック
		utils.LogInfo("monday.com APIの認証を確認しています...")
		me, err := client.CheckAuth(cmd.Context())
		if err != nil {
			utils.LogError("monday.com 認証エラー: %v", err)
			utils.LogError("認証情報を確認してください。")
			return err
		}

		utils.LogInfo("認証成功！ ユーザー: %s <%s> 接続先: %s", me.Name, me.Email, cfg.MondayAPIURL)
		utils.LogInfo("monday.com APIの認証情報は正常です。")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
