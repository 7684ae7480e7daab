package services

import (
	"context"

	"mondaydownloader/models"
)

// 各サービスが必要とするmonday.com APIの操作
// 実装は api.MondayClient です

// BoardLister はワークスペースとボードの一覧を取得します
type BoardLister interface {
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	ListBoards(ctx context.Context, limit int) ([]models.Board, error)
}

// GroupLister はボードのグループ一覧を取得します
type GroupLister interface {
	ListGroups(ctx context.Context, boardID models.BoardID) ([]models.GroupRef, error)
}

// ColumnLister はボードのカラム一覧を取得します
type ColumnLister interface {
	ListColumns(ctx context.Context, boardID models.BoardID) ([]models.ColumnRef, error)
}

// ItemPager はアイテムをページ単位で取得します
type ItemPager interface {
	ItemsPage(ctx context.Context, q models.ItemsPageQuery) (*models.ItemsPage, error)
}

// AssetFetcher はアイテムの添付ファイルを列挙・ダウンロードします
type AssetFetcher interface {
	ItemAssets(ctx context.Context, itemID int64) ([]models.Asset, bool, error)
	DownloadFile(ctx context.Context, url string) ([]byte, error)
	DownloadFileWithAuth(ctx context.Context, url string) ([]byte, error)
	FileURL(assetID string) string
}

// ColumnValueChanger はカラム値を更新します
type ColumnValueChanger interface {
	ChangeSimpleColumnValue(ctx context.Context, boardID models.BoardID, itemID int64, columnID, value string) error
}

// MondayAPI はジョブ全体で使う操作をまとめたものです
type MondayAPI interface {
	BoardLister
	GroupLister
	ColumnLister
	ItemPager
	AssetFetcher
	ColumnValueChanger
}

// FileSaver はダウンロードしたファイルを保存します
// 同名ファイルがある場合は別名で保存し、実際のパスを返します
type FileSaver interface {
	Save(fileName string, data []byte, dir string) (string, error)
}
