package models

import "time"

// BoardID はmonday.comのボードIDです
type BoardID int64

// Workspace はワークスペースの最小情報を表します
type Workspace struct {
	ID   string
	Name string
}

// Board はボードの最小情報を表します
type Board struct {
	ID   BoardID
	Name string
}

// GroupRef はボード内のグループを表します
// Title はリモートの表記のまま保持します（"> " プレフィックスを含む場合があります）
type GroupRef struct {
	ID    string
	Title string
}

// ColumnRef はボードのカラムを表します
type ColumnRef struct {
	ID    string
	Title string
	Type  string
}

// ColumnValue はアイテムが持つカラム値です
type ColumnValue struct {
	ID   string
	Text string
}

// RemoteItem は items_page から返されるアイテムです
type RemoteItem struct {
	ID           int64
	CreatedAt    string
	Group        *GroupRef
	ColumnValues []ColumnValue
}

// ColumnText は指定したカラムのテキストを返します。存在しない場合は空文字です
func (i RemoteItem) ColumnText(columnID string) string {
	if columnID == "" {
		return ""
	}
	for _, cv := range i.ColumnValues {
		if cv.ID == columnID {
			return cv.Text
		}
	}
	return ""
}

// ItemsPage は1ページ分のアイテムと次ページ用カーソルです
type ItemsPage struct {
	Cursor string
	Items  []RemoteItem
}

// ItemsPageQuery は items_page の取得条件です
// GroupID を指定した場合はサーバー側でグループに絞り込みます
type ItemsPageQuery struct {
	BoardID   BoardID
	GroupID   string
	Limit     int
	Cursor    string
	ColumnIDs []string
}

// ItemInfo は処理対象として抽出されたアイテムです
type ItemInfo struct {
	ItemID    int64
	Email     string
	GroupName string
}

// Asset はアップデートに添付されたファイルです
type Asset struct {
	ID        string
	Name      string
	URL       string
	Extension string
}

// GroupMapping はグループ名と保存先フォルダの対応です
type GroupMapping struct {
	Title  string
	Folder string
}

// ItemOutcome はアイテム1件の処理結果です
type ItemOutcome int

const (
	// ItemSuccess は成功 (1, 0) を表します
	ItemSuccess ItemOutcome = iota
	// ItemFailure は失敗 (0, 1) を表します
	ItemFailure
)

// Counts は (成功数, 失敗数) を返します
func (o ItemOutcome) Counts() (success, failed int) {
	if o == ItemSuccess {
		return 1, 0
	}
	return 0, 1
}

func (o ItemOutcome) String() string {
	if o == ItemSuccess {
		return "SUCCESS"
	}
	return "FAILURE"
}

// ItemResult はアイテム単位の処理結果です
type ItemResult struct {
	Item    ItemInfo
	Outcome ItemOutcome
	Files   int
	Err     error
}

// GroupResult はグループ単位の処理結果です
type GroupResult struct {
	Title     string
	Success   int
	Failed    int
	Processed bool
	Err       error
	Items     []ItemResult
}

// ProcessedGroup は処理済みグループの結果を作成します
func ProcessedGroup(title string, items []ItemResult) GroupResult {
	r := GroupResult{Title: title, Processed: true, Items: items}
	for _, item := range items {
		s, f := item.Outcome.Counts()
		r.Success += s
		r.Failed += f
	}
	return r
}

// SkippedGroup はフォルダ設定がないため処理しなかったグループの結果を作成します
func SkippedGroup(title string) GroupResult {
	return GroupResult{Title: title}
}

// FailedGroup はアイテム取得に失敗したグループの結果を作成します
func FailedGroup(title string, err error) GroupResult {
	return GroupResult{Title: title, Processed: true, Err: err}
}

// RunSummary はジョブ全体の集計結果です
type RunSummary struct {
	RunID           string
	BoardID         BoardID
	GroupsProcessed int
	GroupsFailed    int
	TotalGroups     int
	Success         int
	Failed          int
	StartedAt       time.Time
	Duration        time.Duration
	Groups          []GroupResult
}
