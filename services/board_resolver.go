package services

import (
	"context"
	"fmt"

	"mondaydownloader/models"
	"mondaydownloader/utils"
)

// boardsLimit はボード名検索で取得するボード数です
const boardsLimit = 500

// BoardResolver はボード名からボードIDを解決します
type BoardResolver struct {
	api BoardLister
}

// NewBoardResolver は新しいボードリゾルバを作成します
func NewBoardResolver(api BoardLister) *BoardResolver {
	return &BoardResolver{api: api}
}

// Resolve はボード名に完全一致するボードのIDを返します
// ワークスペースは確認のために検索するだけで、失敗しても処理を続けます
func (r *BoardResolver) Resolve(ctx context.Context, workspaceName, boardName string) (models.BoardID, error) {
	if workspaceName != "" {
		r.logWorkspace(ctx, workspaceName)
	}

	boards, err := r.api.ListBoards(ctx, boardsLimit)
	if err != nil {
		return 0, fmt.Errorf("ボード一覧の取得エラー: %w", err)
	}

	for _, board := range boards {
		if board.Name == boardName {
			return board.ID, nil
		}
	}

	return 0, fmt.Errorf("%q: %w", boardName, ErrBoardNotFound)
}

func (r *BoardResolver) logWorkspace(ctx context.Context, workspaceName string) {
	workspaces, err := r.api.ListWorkspaces(ctx)
	if err != nil {
		utils.LogWarn("ワークスペースの検索でエラーが発生しました（ボード検索を続行します）: %v", err)
		return
	}

	for _, w := range workspaces {
		if w.Name == workspaceName {
			utils.LogInfo("ワークスペース '%s' を確認しました (ID: %s)", w.Name, w.ID)
			return
		}
	}
	utils.LogWarn("ワークスペース '%s' が見つかりません（ボード検索を続行します）", workspaceName)
}
