package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"mondaydownloader/models"
	"mondaydownloader/utils"
)

const (
	// itemsPageLimit は1ページで取得するアイテム数です
	itemsPageLimit = 100
	// maxOptimizedItems はグループ指定取得で確認するアイテム数の上限です
	maxOptimizedItems = 1000
	// maxSearchItems はボード全件検索で確認するアイテム数の上限です
	maxSearchItems = 2000
	// maxEmptyPages は空ページが続いたときに打ち切る回数です
	maxEmptyPages = 2
)

// createdAtLayouts は created_at として受け付ける形式です
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ResolveRequest はグループ内アイテムの抽出条件です
type ResolveRequest struct {
	BoardID        models.BoardID
	GroupTitle     string
	StatusColumnID string
	TargetStatus   string
	EmailColumnID  string
	// DateThreshold より前に作成されたアイテムは除外します（同時刻は含む）
	DateThreshold time.Time
}

// ItemResolver はグループ内の処理対象アイテムを抽出します
type ItemResolver struct {
	api     ItemPager
	catalog *GroupCatalog
	// maxItems は1グループで返すアイテム数の上限です（0は無制限）
	maxItems int
}

// NewItemResolver は新しいアイテムリゾルバを作成します
func NewItemResolver(api ItemPager, catalog *GroupCatalog, maxItems int) *ItemResolver {
	return &ItemResolver{
		api:      api,
		catalog:  catalog,
		maxItems: maxItems,
	}
}

// Resolve はグループのアイテムをステータスと作成日で絞り込んで返します
// グループIDが解決できればグループ指定で取得し、失敗した場合はボード全件検索に一度だけ切り替えます
func (r *ItemResolver) Resolve(ctx context.Context, req ResolveRequest) ([]models.ItemInfo, error) {
	log := utils.Logger().With(zap.String("group", req.GroupTitle))

	groupID, ok, err := r.catalog.Lookup(ctx, req.BoardID, req.GroupTitle)
	if err != nil {
		log.Warn("グループIDを解決できません。全件検索を使います", zap.Error(err))
	}

	if ok {
		items, err := r.resolveByGroupID(ctx, req, groupID, log)
		if err == nil {
			return items, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(err, ctxErr)
		}
		log.Warn("グループ指定の取得に失敗しました。全件検索に切り替えます",
			zap.String("group_id", groupID), zap.Error(err))
	}

	return r.resolveBySearch(ctx, req, log)
}

// resolveByGroupID はサーバー側でグループを絞り込んで取得します
// 新しい順に返される前提で、閾値より古いアイテムを含むページに達したら打ち切ります
func (r *ItemResolver) resolveByGroupID(ctx context.Context, req ResolveRequest, groupID string, log *zap.Logger) ([]models.ItemInfo, error) {
	log.Debug("グループ指定でアイテムを検索しています", zap.String("group_id", groupID))

	var result []models.ItemInfo
	cursor := ""
	checked := 0
	emptyPages := 0

	for checked < maxOptimizedItems {
		page, err := r.api.ItemsPage(ctx, models.ItemsPageQuery{
			BoardID:   req.BoardID,
			GroupID:   groupID,
			Limit:     itemsPageLimit,
			Cursor:    cursor,
			ColumnIDs: req.columnIDs(),
		})
		if err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			emptyPages++
			if emptyPages >= maxEmptyPages {
				break
			}
		} else {
			emptyPages = 0
		}

		var oldest time.Time
		for _, item := range page.Items {
			checked++

			if item.Group == nil || item.Group.ID != groupID {
				continue
			}

			createdAt, ok := ParseCreatedAt(item.CreatedAt, req.DateThreshold.Location())
			if !ok {
				continue
			}
			if oldest.IsZero() || createdAt.Before(oldest) {
				oldest = createdAt
			}

			info, ok := req.accept(item, createdAt)
			if !ok {
				continue
			}
			result = append(result, info)
			if r.limitReached(result) {
				return result, nil
			}
		}

		// 並び順が作成日時の降順でなくなった場合、ここで取りこぼしが起きる
		if !oldest.IsZero() && oldest.Before(req.DateThreshold) && len(result) > 0 {
			break
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	log.Info("グループ指定検索が完了しました", zap.Int("checked", checked), zap.Int("matched", len(result)))
	return result, nil
}

// resolveBySearch はボードの全アイテムを走査し、グループ名の照合で絞り込みます
func (r *ItemResolver) resolveBySearch(ctx context.Context, req ResolveRequest, log *zap.Logger) ([]models.ItemInfo, error) {
	log.Debug("ボード全体からアイテムを検索しています")

	var result []models.ItemInfo
	cursor := ""
	checked := 0
	emptyPages := 0

	for checked < maxSearchItems {
		page, err := r.api.ItemsPage(ctx, models.ItemsPageQuery{
			BoardID:   req.BoardID,
			Limit:     itemsPageLimit,
			Cursor:    cursor,
			ColumnIDs: req.columnIDs(),
		})
		if err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			emptyPages++
			if emptyPages >= maxEmptyPages {
				break
			}
		} else {
			emptyPages = 0
		}

		for _, item := range page.Items {
			checked++

			createdAt, ok := ParseCreatedAt(item.CreatedAt, req.DateThreshold.Location())
			if !ok {
				continue
			}

			if item.Group == nil || !MatchesGroupTitle(req.GroupTitle, strings.TrimSpace(item.Group.Title)) {
				continue
			}

			info, ok := req.accept(item, createdAt)
			if !ok {
				continue
			}
			result = append(result, info)
			if r.limitReached(result) {
				return result, nil
			}
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	if len(result) == 0 {
		log.Warn("条件に一致するアイテムが見つかりませんでした", zap.Int("checked", checked))
	} else {
		log.Info("全件検索が完了しました", zap.Int("checked", checked), zap.Int("matched", len(result)))
	}
	return result, nil
}

func (r *ItemResolver) limitReached(result []models.ItemInfo) bool {
	return r.maxItems > 0 && len(result) >= r.maxItems
}

// accept は作成日とステータスの条件を満たすアイテムを ItemInfo に変換します
func (req ResolveRequest) accept(item models.RemoteItem, createdAt time.Time) (models.ItemInfo, bool) {
	if createdAt.Before(req.DateThreshold) {
		return models.ItemInfo{}, false
	}

	if req.StatusColumnID != "" && !StatusMatches(item.ColumnText(req.StatusColumnID), req.TargetStatus) {
		return models.ItemInfo{}, false
	}

	return models.ItemInfo{
		ItemID:    item.ID,
		Email:     strings.TrimSpace(item.ColumnText(req.EmailColumnID)),
		GroupName: req.GroupTitle,
	}, true
}

func (req ResolveRequest) columnIDs() []string {
	var ids []string
	if req.StatusColumnID != "" {
		ids = append(ids, req.StatusColumnID)
	}
	if req.EmailColumnID != "" {
		ids = append(ids, req.EmailColumnID)
	}
	return ids
}

// StatusMatches はステータスが空、または targetStatus と大文字小文字を無視して一致するかを判定します
func StatusMatches(status, targetStatus string) bool {
	status = strings.TrimSpace(status)
	if status == "" {
		return true
	}
	return targetStatus != "" && strings.EqualFold(targetStatus, status)
}

// ParseCreatedAt は created_at を解析し、タイムゾーンを外した時刻として loc 上に置き直します
// 空文字や解析できない値は false を返します
func ParseCreatedAt(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range createdAtLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
	}
	return time.Time{}, false
}

// DateThreshold は now の日付の0時から days 日前の時刻を返します
func DateThreshold(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-days, 0, 0, 0, 0, now.Location())
}
