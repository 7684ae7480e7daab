package services

import (
	"context"
	"errors"
	"fmt"

	"mondaydownloader/api"
	"mondaydownloader/models"
)

// StatusMutator はアイテムのステータスカラムを更新します
type StatusMutator struct {
	api     ColumnValueChanger
	columns *ColumnResolver
}

// NewStatusMutator は新しいステータス更新サービスを作成します
func NewStatusMutator(api ColumnValueChanger, columns *ColumnResolver) *StatusMutator {
	return &StatusMutator{
		api:     api,
		columns: columns,
	}
}

// SetStatus はアイテムのステータスを newStatus に変更します
// 再試行はしません。応答にエラーが含まれていれば ErrMutationFailed を返します
func (m *StatusMutator) SetStatus(ctx context.Context, itemID int64, newStatus string, boardID models.BoardID) error {
	columnID, err := m.columns.StatusColumnID(ctx, boardID)
	if err != nil {
		return err
	}

	if err := m.api.ChangeSimpleColumnValue(ctx, boardID, itemID, columnID, newStatus); err != nil {
		var remoteErr *api.RemoteQueryError
		if errors.As(err, &remoteErr) {
			return fmt.Errorf("アイテム %d: %w: %w", itemID, ErrMutationFailed, err)
		}
		return fmt.Errorf("アイテム %d のステータス更新エラー: %w", itemID, err)
	}

	return nil
}
