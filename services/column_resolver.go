package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mondaydownloader/models"
	"mondaydownloader/utils"
)

// ColumnResolver は "Status" や "Email" などのカラム名をカラムIDに解決します
// 解決に成功した結果はボードごとにプロセスの間だけ保持します
type ColumnResolver struct {
	api         ColumnLister
	statusTitle string
	emailTitle  string

	mu     sync.Mutex
	status map[models.BoardID]string
	email  map[models.BoardID]string
}

// NewColumnResolver は新しいカラムリゾルバを作成します
func NewColumnResolver(api ColumnLister, statusTitle, emailTitle string) *ColumnResolver {
	return &ColumnResolver{
		api:         api,
		statusTitle: statusTitle,
		emailTitle:  emailTitle,
		status:      make(map[models.BoardID]string),
		email:       make(map[models.BoardID]string),
	}
}

// StatusColumnID はステータスカラムのIDを返します
// タイトルが一致せず、IDに "status" を含むカラムもなければ ErrColumnNotFound です
func (r *ColumnResolver) StatusColumnID(ctx context.Context, boardID models.BoardID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.status[boardID]; ok {
		return id, nil
	}

	columns, err := r.api.ListColumns(ctx, boardID)
	if err != nil {
		return "", fmt.Errorf("カラム取得エラー: %w", err)
	}
	if columns == nil {
		return "", fmt.Errorf("ボード %d: %w", boardID, ErrBoardNotFound)
	}

	id, ok := findColumn(columns, r.statusTitle, "status")
	if !ok {
		return "", fmt.Errorf("ボード %d のステータスカラム %q: %w", boardID, r.statusTitle, ErrColumnNotFound)
	}

	r.status[boardID] = id
	utils.LogInfo("ステータスカラムID: %s", id)
	return id, nil
}

// EmailColumnID はメールカラムのIDを返します
// メールは任意の情報のため、見つからない場合やエラーの場合は空文字を返します
func (r *ColumnResolver) EmailColumnID(ctx context.Context, boardID models.BoardID) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.email[boardID]; ok {
		return id
	}

	columns, err := r.api.ListColumns(ctx, boardID)
	if err != nil {
		utils.LogWarn("メールカラム取得時のエラー: %v", err)
		return ""
	}

	id, ok := findColumn(columns, r.emailTitle, "email")
	if !ok {
		utils.LogWarn("ボード %d にメールカラムが見つかりません", boardID)
		return ""
	}

	r.email[boardID] = id
	utils.LogInfo("メールカラムID: %s", id)
	return id
}

// findColumn はタイトルの大文字小文字を無視した一致、次にIDの部分一致でカラムを探します
func findColumn(columns []models.ColumnRef, title, idKeyword string) (string, bool) {
	for _, col := range columns {
		if strings.EqualFold(col.Title, title) {
			return col.ID, true
		}
	}
	for _, col := range columns {
		if strings.Contains(strings.ToLower(col.ID), idKeyword) {
			return col.ID, true
		}
	}
	return "", false
}
