package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mondaydownloader/models"
	"mondaydownloader/utils"
)

// GroupCatalog はボードごとのグループ名 → グループID の対応をキャッシュします
// キャッシュはプロセスの間だけ保持し、途中で破棄しません
type GroupCatalog struct {
	api GroupLister

	mu    sync.Mutex
	cache map[models.BoardID]map[string]string
}

// NewGroupCatalog は新しいグループカタログを作成します
func NewGroupCatalog(api GroupLister) *GroupCatalog {
	return &GroupCatalog{
		api:   api,
		cache: make(map[models.BoardID]map[string]string),
	}
}

// Initialize はボードの全グループを一度だけ取得してキャッシュします
// すでにキャッシュ済みなら何もしません。取得中は他の呼び出しを待たせます
func (c *GroupCatalog) Initialize(ctx context.Context, boardID models.BoardID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache[boardID]) > 0 {
		return nil
	}

	utils.LogInfo("グループIDキャッシュを初期化しています...")
	groups, err := c.api.ListGroups(ctx, boardID)
	if err != nil {
		return fmt.Errorf("グループ取得エラー: %w", err)
	}

	ids := make(map[string]string, len(groups)*2)
	for _, g := range groups {
		title := strings.TrimSpace(g.Title)
		ids[title] = g.ID
		// "> " 付きのグループは除去した名前でも引けるようにする
		if strings.HasPrefix(title, GroupPrefix) {
			ids[StripGroupPrefix(title)] = g.ID
		}
	}
	c.cache[boardID] = ids

	utils.Logger().Info("グループIDをキャッシュしました",
		zap.Int64("board_id", int64(boardID)),
		zap.Int("groups", len(groups)),
		zap.Int("entries", len(ids)))
	return nil
}

// Lookup はグループ名からグループIDを探します
// 完全一致で見つからなければキャッシュ済みの名前を MatchesGroupTitle で照合します
// キャッシュが空なら一度だけ初期化してから再検索します
func (c *GroupCatalog) Lookup(ctx context.Context, boardID models.BoardID, title string) (string, bool, error) {
	id, ok, empty := c.lookupCached(boardID, title)
	if ok || !empty {
		return id, ok, nil
	}

	if err := c.Initialize(ctx, boardID); err != nil {
		return "", false, err
	}

	id, ok, _ = c.lookupCached(boardID, title)
	return id, ok, nil
}

// Len はボードのキャッシュ件数を返します
func (c *GroupCatalog) Len(boardID models.BoardID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache[boardID])
}

func (c *GroupCatalog) lookupCached(boardID models.BoardID, title string) (id string, ok bool, empty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.cache[boardID]
	if len(ids) == 0 {
		return "", false, true
	}

	if id, ok := ids[title]; ok {
		return id, true, false
	}

	// 照合順を固定する
	titles := make([]string, 0, len(ids))
	for t := range ids {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	for _, t := range titles {
		if MatchesGroupTitle(title, t) {
			return ids[t], true, false
		}
	}
	return "", false, false
}
