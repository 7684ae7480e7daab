package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mondaydownloader/api"
	"mondaydownloader/config"
	"mondaydownloader/models"
)

var testJobNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func newTestConfig(groups ...models.GroupMapping) *config.Config {
	return &config.Config{
		MondayAPIToken:    "tok",
		WorkspaceName:     "Ops",
		BoardName:         "Orders",
		StatusColumnTitle: "Status",
		EmailColumnTitle:  "Email",
		TargetStatus:      "Retry",
		NewStatus:         "In Queue",
		DaysToProcess:     0,
		GroupWorkers:      7,
		ItemWorkers:       10,
		Groups:            groups,
	}
}

func newTestJob(cfg *config.Config, api *fakeAPI, store FileSaver) *AttachmentJob {
	job := NewAttachmentJob(cfg, api, store)
	job.now = func() time.Time { return testJobNow }
	job.attachments.now = func() time.Time { return testJobNow }
	return job
}

func TestRun_AggregatesGroupResults(t *testing.T) {
	fake := newFakeAPI()
	fake.groups = []models.GroupRef{{ID: "g1", Title: "West"}, {ID: "g3", Title: "Quebec"}}
	fake.setPages("g1", []models.RemoteItem{
		remoteItem(1, "g1", "West", "2024-05-10T08:00:00Z", "Retry", "a@example.com"),
		remoteItem(2, "g1", "West", "2024-05-10T08:00:00Z", "", ""),
		remoteItem(3, "g1", "West", "2024-05-10T08:00:00Z", "", ""),
		remoteItem(4, "g1", "West", "2024-05-10T08:00:00Z", "", ""),
		remoteItem(5, "g1", "West", "2024-05-10T08:00:00Z", "Done", ""),
	})
	fake.pageErrs["g3"] = errors.New("ComplexityException")
	fake.pageErrs[""] = errors.New("HTTPエラー 500")

	fake.assets[1] = []models.Asset{{ID: "a1", Name: "order.pdf", URL: "https://cdn/a1"}}
	fake.publicFiles["https://cdn/a1"] = []byte("pdf")
	fake.changeErr[3] = &api.RemoteQueryError{Messages: []string{"invalid value"}}
	fake.panicItems[4] = true

	cfg := newTestConfig(
		models.GroupMapping{Title: "West", Folder: "/out/west"},
		models.GroupMapping{Title: "East", Folder: ""},
		models.GroupMapping{Title: "Quebec", Folder: "/out/quebec"},
	)
	store := newFakeStore()

	summary, err := newTestJob(cfg, fake, store).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, models.BoardID(77), summary.BoardID)
	assert.Equal(t, 3, summary.TotalGroups)
	assert.Equal(t, 2, summary.GroupsProcessed)
	assert.Equal(t, 1, summary.GroupsFailed)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 2, summary.Failed)

	require.Len(t, summary.Groups, 3)
	west, east, quebec := summary.Groups[0], summary.Groups[1], summary.Groups[2]

	assert.Equal(t, "West", west.Title)
	assert.True(t, west.Processed)
	assert.Equal(t, west.Success+west.Failed, len(west.Items))

	outcomes := make(map[int64]models.ItemOutcome)
	for _, r := range west.Items {
		outcomes[r.Item.ItemID] = r.Outcome
	}
	assert.Equal(t, map[int64]models.ItemOutcome{
		1: models.ItemSuccess,
		2: models.ItemSuccess,
		3: models.ItemFailure,
		4: models.ItemFailure,
	}, outcomes)
	assert.ErrorIs(t, west.Items[2].Err, ErrMutationFailed)
	assert.ErrorContains(t, west.Items[3].Err, "panic")

	assert.Equal(t, models.SkippedGroup("East"), east)

	assert.True(t, quebec.Processed)
	assert.Error(t, quebec.Err)
	assert.Zero(t, quebec.Success+quebec.Failed)

	want := []statusChange{
		{BoardID: 77, ItemID: 1, ColumnID: testStatusColumn, Value: "In Queue"},
		{BoardID: 77, ItemID: 2, ColumnID: testStatusColumn, Value: "In Queue"},
	}
	if diff := cmp.Diff(want, fake.statusChanges(), cmpopts.SortSlices(func(a, b statusChange) bool { return a.ItemID < b.ItemID })); diff != "" {
		t.Errorf("status changes mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"order__1__a@example.com__West.pdf"}, store.names())
}

func TestRun_NoItemsIsProcessed(t *testing.T) {
	fake := newFakeAPI()
	fake.groups = []models.GroupRef{{ID: "g1", Title: "West"}}

	summary, err := newTestJob(newTestConfig(models.GroupMapping{Title: "West", Folder: "/out"}), fake, newFakeStore()).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Zero(t, summary.GroupsFailed)
	assert.Zero(t, summary.Success)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, fake.statusChanges())
}

func TestRun_BoardNotFound(t *testing.T) {
	fake := newFakeAPI()
	cfg := newTestConfig()
	cfg.BoardName = "Missing"

	_, err := newTestJob(cfg, fake, newFakeStore()).Run(context.Background())
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestRun_StatusColumnNotFound(t *testing.T) {
	fake := newFakeAPI()
	fake.columns = []models.ColumnRef{{ID: "name", Title: "Name"}}

	_, err := newTestJob(newTestConfig(), fake, newFakeStore()).Run(context.Background())
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestRun_ItemConcurrencyIsShared(t *testing.T) {
	fake := newFakeAPI()
	fake.assetDelay = 10 * time.Millisecond

	var groups []models.GroupMapping
	for g := 1; g <= 3; g++ {
		groupID := fmt.Sprintf("g%d", g)
		title := fmt.Sprintf("Group %d", g)
		fake.groups = append(fake.groups, models.GroupRef{ID: groupID, Title: title})

		var items []models.RemoteItem
		for i := 0; i < 6; i++ {
			items = append(items, remoteItem(int64(g*100+i), groupID, title, "2024-05-10T08:00:00Z", "", ""))
		}
		fake.setPages(groupID, items)
		groups = append(groups, models.GroupMapping{Title: title, Folder: "/out/" + groupID})
	}

	cfg := newTestConfig(groups...)
	cfg.GroupWorkers = 3
	cfg.ItemWorkers = 2

	summary, err := newTestJob(cfg, fake, newFakeStore()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 18, summary.Success)
	assert.LessOrEqual(t, fake.maxInFlight, 2)
	assert.Len(t, fake.statusChanges(), 18)
}

func TestRun_WritesReport(t *testing.T) {
	fake := newFakeAPI()
	fake.groups = []models.GroupRef{{ID: "g1", Title: "West"}}
	fake.setPages("g1", []models.RemoteItem{remoteItem(1, "g1", "West", "2024-05-10T08:00:00Z", "", "a@example.com")})

	cfg := newTestConfig(
		models.GroupMapping{Title: "West", Folder: "/out/west"},
		models.GroupMapping{Title: "East"},
	)
	cfg.ReportCSV = filepath.Join(t.TempDir(), "reports", "run.csv")

	summary, err := newTestJob(cfg, fake, newFakeStore()).Run(context.Background())
	require.NoError(t, err)

	f, err := os.Open(cfg.ReportCSV)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		ReportHeaders,
		{summary.RunID, "West", "1", "a@example.com", "0", "SUCCESS", ""},
		{summary.RunID, "East", "", "", "0", "SKIPPED", ""},
	}, records)
}

func TestSummarize(t *testing.T) {
	results := []models.GroupResult{
		models.ProcessedGroup("a", []models.ItemResult{{Outcome: models.ItemSuccess}, {Outcome: models.ItemFailure}}),
		models.ProcessedGroup("b", nil),
		models.SkippedGroup("c"),
		models.FailedGroup("d", errors.New("boom")),
	}

	summary := Summarize(results)
	assert.Equal(t, 4, summary.TotalGroups)
	assert.Equal(t, 3, summary.GroupsProcessed)
	assert.Equal(t, 1, summary.GroupsFailed)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Failed)

	assert.Zero(t, Summarize(nil).TotalGroups)
}
