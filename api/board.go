package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mondaydownloader/models"
)

// Me は認証済みユーザーの情報です
type Me struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type namedNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type columnNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type columnValueNode struct {
	ID   string  `json:"id"`
	Text *string `json:"text"`
}

type itemNode struct {
	ID           string            `json:"id"`
	CreatedAt    string            `json:"created_at"`
	Group        *groupNode        `json:"group"`
	ColumnValues []columnValueNode `json:"column_values"`
}

type itemsPageNode struct {
	Cursor *string    `json:"cursor"`
	Items  []itemNode `json:"items"`
}

type assetNode struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PublicURL     *string `json:"public_url"`
	FileExtension string  `json:"file_extension"`
}

type updateNode struct {
	ID     string      `json:"id"`
	Assets []assetNode `json:"assets"`
}

// CheckAuth はmonday.com APIの認証をチェックし、ユーザー情報を返します
func (m *MondayClient) CheckAuth(ctx context.Context) (*Me, error) {
	data, err := m.Post(ctx, meQuery, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Me *Me `json:"me"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	if resp.Me == nil {
		return nil, fmt.Errorf("認証失敗: ユーザー情報が返されませんでした")
	}

	return resp.Me, nil
}

// ListWorkspaces はワークスペースの一覧を取得します
func (m *MondayClient) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	data, err := m.Post(ctx, workspacesQuery, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Workspaces []namedNode `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	workspaces := make([]models.Workspace, 0, len(resp.Workspaces))
	for _, w := range resp.Workspaces {
		workspaces = append(workspaces, models.Workspace{ID: w.ID, Name: w.Name})
	}
	return workspaces, nil
}

// ListBoards はボードの一覧を取得します
func (m *MondayClient) ListBoards(ctx context.Context, limit int) ([]models.Board, error) {
	data, err := m.Post(ctx, boardsQuery, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Boards []namedNode `json:"boards"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	boards := make([]models.Board, 0, len(resp.Boards))
	for _, b := range resp.Boards {
		id, err := strconv.ParseInt(b.ID, 10, 64)
		if err != nil {
			continue
		}
		boards = append(boards, models.Board{ID: models.BoardID(id), Name: b.Name})
	}
	return boards, nil
}

// ListGroups はボードのグループ一覧を取得します
// ボードが存在しない場合は空のスライスを返します
func (m *MondayClient) ListGroups(ctx context.Context, boardID models.BoardID) ([]models.GroupRef, error) {
	data, err := m.Post(ctx, groupsQuery, boardVariables(boardID))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Boards []struct {
			Groups []groupNode `json:"groups"`
		} `json:"boards"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	if len(resp.Boards) == 0 {
		return nil, nil
	}

	groups := make([]models.GroupRef, 0, len(resp.Boards[0].Groups))
	for _, g := range resp.Boards[0].Groups {
		groups = append(groups, models.GroupRef{ID: g.ID, Title: g.Title})
	}
	return groups, nil
}

// ListColumns はボードのカラム一覧を取得します
// ボードが存在しない場合は空のスライスを返します
func (m *MondayClient) ListColumns(ctx context.Context, boardID models.BoardID) ([]models.ColumnRef, error) {
	data, err := m.Post(ctx, columnsQuery, boardVariables(boardID))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Boards []struct {
			Columns []columnNode `json:"columns"`
		} `json:"boards"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	if len(resp.Boards) == 0 {
		return nil, nil
	}

	columns := make([]models.ColumnRef, 0, len(resp.Boards[0].Columns))
	for _, c := range resp.Boards[0].Columns {
		columns = append(columns, models.ColumnRef{ID: c.ID, Title: c.Title, Type: c.Type})
	}
	return columns, nil
}

// ItemsPage はアイテムを1ページ分取得します
// q.GroupID が指定されていればグループ単位の items_page を使います
func (m *MondayClient) ItemsPage(ctx context.Context, q models.ItemsPageQuery) (*models.ItemsPage, error) {
	variables := boardVariables(q.BoardID)
	variables["limit"] = q.Limit
	if q.Cursor != "" {
		variables["cursor"] = q.Cursor
	}
	if len(q.ColumnIDs) > 0 {
		variables["columnIds"] = q.ColumnIDs
	}

	query := boardItemsPageQuery
	if q.GroupID != "" {
		query = groupItemsPageQuery
		variables["groupIds"] = []string{q.GroupID}
	}

	data, err := m.Post(ctx, query, variables)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Boards []struct {
			ItemsPage *itemsPageNode `json:"items_page"`
			Groups    []struct {
				ItemsPage *itemsPageNode `json:"items_page"`
			} `json:"groups"`
		} `json:"boards"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	page := &models.ItemsPage{}
	if len(resp.Boards) == 0 {
		return page, nil
	}

	node := resp.Boards[0].ItemsPage
	if q.GroupID != "" {
		node = nil
		if len(resp.Boards[0].Groups) > 0 {
			node = resp.Boards[0].Groups[0].ItemsPage
		}
	}
	if node == nil {
		return page, nil
	}

	if node.Cursor != nil {
		page.Cursor = *node.Cursor
	}
	page.Items = make([]models.RemoteItem, 0, len(node.Items))
	for _, it := range node.Items {
		id, err := strconv.ParseInt(it.ID, 10, 64)
		if err != nil {
			continue
		}
		item := models.RemoteItem{ID: id, CreatedAt: it.CreatedAt}
		if it.Group != nil {
			item.Group = &models.GroupRef{ID: it.Group.ID, Title: it.Group.Title}
		}
		for _, cv := range it.ColumnValues {
			text := ""
			if cv.Text != nil {
				text = *cv.Text
			}
			item.ColumnValues = append(item.ColumnValues, models.ColumnValue{ID: cv.ID, Text: text})
		}
		page.Items = append(page.Items, item)
	}

	return page, nil
}

// ItemAssets はアイテムの全アップデートに添付されたアセットを取得します
// アイテムが見つからない場合 found は false です
func (m *MondayClient) ItemAssets(ctx context.Context, itemID int64) (assets []models.Asset, found bool, err error) {
	data, err := m.Post(ctx, itemAssetsQuery, map[string]any{
		"itemIds": []string{strconv.FormatInt(itemID, 10)},
	})
	if err != nil {
		return nil, false, err
	}

	var resp struct {
		Items []struct {
			ID      string       `json:"id"`
			Updates []updateNode `json:"updates"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, false, nil
	}

	for _, update := range resp.Items[0].Updates {
		for _, a := range update.Assets {
			asset := models.Asset{
				ID:        a.ID,
				Name:      a.Name,
				Extension: strings.TrimPrefix(a.FileExtension, "."),
			}
			if a.PublicURL != nil {
				asset.URL = *a.PublicURL
			}
			assets = append(assets, asset)
		}
	}

	return assets, true, nil
}

// ChangeSimpleColumnValue はアイテムのカラム値を1つ更新します
func (m *MondayClient) ChangeSimpleColumnValue(ctx context.Context, boardID models.BoardID, itemID int64, columnID, value string) error {
	_, err := m.Post(ctx, changeSimpleColumnValueMutation, map[string]any{
		"boardId":  strconv.FormatInt(int64(boardID), 10),
		"itemId":   strconv.FormatInt(itemID, 10),
		"columnId": columnID,
		"value":    value,
	})
	return err
}

func boardVariables(boardID models.BoardID) map[string]any {
	return map[string]any{
		"boardIds": []string{strconv.FormatInt(int64(boardID), 10)},
	}
}
