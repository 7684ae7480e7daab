package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mondaydownloader/api"
	"mondaydownloader/config"
	"mondaydownloader/services"
	"mondaydownloader/utils"
)

var (
	boardName   string
	workspace   string
	showColumns bool
)

var rootCmd = &cobra.Command{
	Use:   "list_groups",
	Short: "ボードのグループとカラムを一覧表示します",
	Long: `monday.com グループ一覧ツール

ボードのグループID・グループ名（とカラム）を表示し、
設定されたグループ名がどのグループに一致するかを確認します。`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			utils.LogError("設定の読み込みに失敗しました: %v", err)
			return err
		}
		if boardName != "" {
			cfg.BoardName = boardName
		}
		if workspace != "" {
			cfg.WorkspaceName = workspace
		}

		ctx := cmd.Context()
		client := api.NewMondayClient(cfg)

		boardID, err := services.NewBoardResolver(client).Resolve(ctx, cfg.WorkspaceName, cfg.BoardName)
		if err != nil {
			utils.LogError("ボードを解決できません: %v", err)
			return err
		}

		groups, err := client.ListGroups(ctx, boardID)
		if err != nil {
			utils.LogError("グループ一覧の取得に失敗しました: %v", err)
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ボード %q (ID: %d) のグループ: %d 件\n", cfg.BoardName, boardID, len(groups))
		for _, g := range groups {
			fmt.Fprintf(out, "  %-20s %s\n", g.ID, g.Title)
		}

		fmt.Fprintln(out, "\n設定されたグループ:")
		for _, title := range cfg.GroupTitles() {
			matched := "(一致なし)"
			for _, g := range groups {
				if services.MatchesGroupTitle(title, g.Title) {
					matched = g.ID
					break
				}
			}
			folder, ok := cfg.FolderFor(title)
			if !ok {
				folder = "(スキップ)"
			}
			fmt.Fprintf(out, "  %-45s -> %-12s %s\n", title, matched, folder)
		}

		if !showColumns {
			return nil
		}

		columns, err := client.ListColumns(ctx, boardID)
		if err != nil {
			utils.LogError("カラム一覧の取得に失敗しました: %v", err)
			return err
		}
		fmt.Fprintf(out, "\nカラム: %d 件\n", len(columns))
		for _, c := range columns {
			fmt.Fprintf(out, "  %-20s %-12s %s\n", c.ID, c.Type, c.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&boardName, "board", "", "対象ボード名（MONDAY_BOARD を上書き）")
	rootCmd.Flags().StringVar(&workspace, "workspace", "", "ワークスペース名（MONDAY_WORKSPACE を上書き）")
	rootCmd.Flags().BoolVar(&showColumns, "columns", false, "カラムも表示する")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
