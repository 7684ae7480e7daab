package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"mondaydownloader/models"
)

const (
	testStatusColumn = "status"
	testEmailColumn  = "email"
)

type statusChange struct {
	BoardID  models.BoardID
	ItemID   int64
	ColumnID string
	Value    string
}

// fakeAPI は MondayAPI のテスト用実装です
// pages は GroupID ごと（"" はボード全体）のページ列で、カーソル "pN" が N 番目のページを指します
type fakeAPI struct {
	mu sync.Mutex

	workspaces    []models.Workspace
	workspacesErr error
	boards        []models.Board
	boardsErr     error

	groups      []models.GroupRef
	groupsErr   error
	groupsCalls int

	columns      []models.ColumnRef
	columnsErr   error
	columnsCalls int

	pages       map[string][]models.ItemsPage
	pageErrs    map[string]error
	pageQueries []models.ItemsPageQuery

	assets      map[int64][]models.Asset
	assetsErr   map[int64]error
	missing     map[int64]bool
	publicFiles map[string][]byte
	authFiles   map[string][]byte
	downloads   []string
	panicItems  map[int64]bool

	// assetDelay の間 ItemAssets を止め、同時実行数を maxInFlight に記録します
	assetDelay  time.Duration
	inFlight    int
	maxInFlight int

	changes   []statusChange
	changeErr map[int64]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		boards:      []models.Board{{ID: 77, Name: "Orders"}},
		columns:     []models.ColumnRef{{ID: testStatusColumn, Title: "Status", Type: "status"}, {ID: testEmailColumn, Title: "Email", Type: "email"}},
		pages:       make(map[string][]models.ItemsPage),
		pageErrs:    make(map[string]error),
		assets:      make(map[int64][]models.Asset),
		assetsErr:   make(map[int64]error),
		missing:     make(map[int64]bool),
		publicFiles: make(map[string][]byte),
		authFiles:   make(map[string][]byte),
		panicItems:  make(map[int64]bool),
		changeErr:   make(map[int64]error),
	}
}

func (f *fakeAPI) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	return f.workspaces, f.workspacesErr
}

func (f *fakeAPI) ListBoards(ctx context.Context, limit int) ([]models.Board, error) {
	return f.boards, f.boardsErr
}

func (f *fakeAPI) ListGroups(ctx context.Context, boardID models.BoardID) ([]models.GroupRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupsCalls++
	return f.groups, f.groupsErr
}

func (f *fakeAPI) ListColumns(ctx context.Context, boardID models.BoardID) ([]models.ColumnRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.columnsCalls++
	return f.columns, f.columnsErr
}

func (f *fakeAPI) ItemsPage(ctx context.Context, q models.ItemsPageQuery) (*models.ItemsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageQueries = append(f.pageQueries, q)

	if err := f.pageErrs[q.GroupID]; err != nil {
		return nil, err
	}

	index := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(q.Cursor, "p"))
		if err != nil {
			return nil, fmt.Errorf("unknown cursor %q", q.Cursor)
		}
		index = n
	}

	pages := f.pages[q.GroupID]
	if index >= len(pages) {
		return &models.ItemsPage{}, nil
	}
	page := pages[index]
	return &page, nil
}

func (f *fakeAPI) ItemAssets(ctx context.Context, itemID int64) ([]models.Asset, bool, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.assetDelay
	f.mu.Unlock()

	time.Sleep(delay)

	f.mu.Lock()
	f.inFlight--
	defer f.mu.Unlock()
	if f.panicItems[itemID] {
		panic(fmt.Sprintf("item %d", itemID))
	}
	if err := f.assetsErr[itemID]; err != nil {
		return nil, false, err
	}
	if f.missing[itemID] {
		return nil, false, nil
	}
	return f.assets[itemID], true, nil
}

func (f *fakeAPI) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	return f.download(f.publicFiles, url)
}

func (f *fakeAPI) DownloadFileWithAuth(ctx context.Context, url string) ([]byte, error) {
	return f.download(f.authFiles, url)
}

func (f *fakeAPI) download(files map[string][]byte, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, url)
	data, ok := files[url]
	if !ok {
		return nil, fmt.Errorf("HTTPエラー 404: %s", url)
	}
	return data, nil
}

func (f *fakeAPI) FileURL(assetID string) string {
	return "auth://" + assetID
}

func (f *fakeAPI) ChangeSimpleColumnValue(ctx context.Context, boardID models.BoardID, itemID int64, columnID, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.changeErr[itemID]; err != nil {
		return err
	}
	f.changes = append(f.changes, statusChange{BoardID: boardID, ItemID: itemID, ColumnID: columnID, Value: value})
	return nil
}

func (f *fakeAPI) statusChanges() []statusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusChange(nil), f.changes...)
}

// setPages は items の各スライスを1ページとして登録し、最後のページ以外にカーソルを付けます
func (f *fakeAPI) setPages(groupID string, pages ...[]models.RemoteItem) {
	result := make([]models.ItemsPage, len(pages))
	for i, items := range pages {
		result[i] = models.ItemsPage{Items: items}
		if i < len(pages)-1 {
			result[i].Cursor = "p" + strconv.Itoa(i+1)
		}
	}
	f.pages[groupID] = result
}

func remoteItem(id int64, groupID, groupTitle, createdAt, status, email string) models.RemoteItem {
	return models.RemoteItem{
		ID:        id,
		CreatedAt: createdAt,
		Group:     &models.GroupRef{ID: groupID, Title: groupTitle},
		ColumnValues: []models.ColumnValue{
			{ID: testStatusColumn, Text: status},
			{ID: testEmailColumn, Text: email},
		},
	}
}

// fakeStore はメモリ上に保存する FileSaver です
type fakeStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]byte)}
}

func (s *fakeStore) Save(fileName string, data []byte, dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	path := filepath.Join(dir, fileName)
	s.saved[path] = data
	return path, nil
}

func (s *fakeStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.saved))
	for path := range s.saved {
		names = append(names, filepath.Base(path))
	}
	return names
}
