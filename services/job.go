package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"mondaydownloader/config"
	"mondaydownloader/models"
	"mondaydownloader/utils"
)

// AttachmentJob はグループ単位・アイテム単位の2段階の並列処理で添付ファイルを取得します
type AttachmentJob struct {
	config      *config.Config
	api         MondayAPI
	boards      *BoardResolver
	catalog     *GroupCatalog
	columns     *ColumnResolver
	items       *ItemResolver
	attachments *AttachmentService
	status      *StatusMutator
	now         func() time.Time
}

// jobRun は1回の実行で全グループが共有する値です
type jobRun struct {
	boardID        models.BoardID
	statusColumnID string
	emailColumnID  string
	threshold      time.Time
	// itemSlots は全グループで共有するアイテム処理の枠です
	itemSlots *semaphore.Weighted
	log       *zap.Logger
}

// NewAttachmentJob は新しいジョブを作成します
func NewAttachmentJob(cfg *config.Config, api MondayAPI, store FileSaver) *AttachmentJob {
	catalog := NewGroupCatalog(api)
	columns := NewColumnResolver(api, cfg.StatusColumnTitle, cfg.EmailColumnTitle)

	return &AttachmentJob{
		config:      cfg,
		api:         api,
		boards:      NewBoardResolver(api),
		catalog:     catalog,
		columns:     columns,
		items:       NewItemResolver(api, catalog, cfg.MaxItemsPerGroup),
		attachments: NewAttachmentService(api, store),
		status:      NewStatusMutator(api, columns),
		now:         time.Now,
	}
}

// Run はボードの解決から全グループの処理までを実行し、集計結果を返します
// ボードとステータスカラムが解決できない場合だけエラーを返します
func (j *AttachmentJob) Run(ctx context.Context) (*models.RunSummary, error) {
	startTime := j.now()
	defer utils.TrackTime(startTime, "添付ファイルダウンロードジョブ")

	runID := uuid.NewString()
	log := utils.Logger().With(zap.String("run_id", runID))

	log.Info("添付ファイルダウンロードジョブを開始します",
		zap.String("workspace", j.config.WorkspaceName),
		zap.String("board", j.config.BoardName),
		zap.Int("days", j.config.DaysToProcess),
		zap.String("target_status", j.config.TargetStatus))

	boardID, err := j.boards.Resolve(ctx, j.config.WorkspaceName, j.config.BoardName)
	if err != nil {
		return nil, fmt.Errorf("ボード解決エラー: %w", err)
	}
	log.Info("ボードIDを取得しました", zap.Int64("board_id", int64(boardID)))

	// 並列処理の前にキャッシュを埋めておく
	if err := j.catalog.Initialize(ctx, boardID); err != nil {
		log.Warn("グループIDキャッシュを初期化できません。全件検索で続行します", zap.Error(err))
	}
	j.logBoardGroups(ctx, boardID, log)

	statusColumnID, err := j.columns.StatusColumnID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("ステータスカラム解決エラー: %w", err)
	}
	emailColumnID := j.columns.EmailColumnID(ctx, boardID)

	run := &jobRun{
		boardID:        boardID,
		statusColumnID: statusColumnID,
		emailColumnID:  emailColumnID,
		threshold:      DateThreshold(startTime, j.config.DaysToProcess),
		itemSlots:      semaphore.NewWeighted(int64(j.config.ItemWorkers)),
		log:            log,
	}

	results := j.processGroups(ctx, run)

	summary := Summarize(results)
	summary.RunID = runID
	summary.BoardID = boardID
	summary.StartedAt = startTime
	summary.Duration = j.now().Sub(startTime)

	log.Info("添付ファイルダウンロードジョブが完了しました",
		zap.String("groups_processed", fmt.Sprintf("%d / %d", summary.GroupsProcessed, summary.TotalGroups)),
		zap.Int("groups_failed", summary.GroupsFailed),
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed))

	if j.config.ReportCSV != "" {
		if err := NewReportWriter(j.config.ReportCSV).Write(&summary); err != nil {
			log.Error("実行レポートを書き込めませんでした", zap.Error(err))
		}
	}

	return &summary, nil
}

// processGroups は設定されたグループを GroupWorkers 個まで並列に処理します
// 結果は設定の順番どおりに並びます
func (j *AttachmentJob) processGroups(ctx context.Context, run *jobRun) []models.GroupResult {
	results := make([]models.GroupResult, len(j.config.Groups))

	var g errgroup.Group
	g.SetLimit(j.config.GroupWorkers)

	for i, group := range j.config.Groups {
		if group.Folder == "" {
			run.log.Warn("保存先フォルダが設定されていないグループをスキップします", zap.String("group", group.Title))
			results[i] = models.SkippedGroup(group.Title)
			continue
		}

		g.Go(func() error {
			results[i] = j.processGroup(ctx, run, group)
			return nil
		})
	}

	// 各グループは失敗を結果として返すため、ここでエラーは発生しない
	_ = g.Wait()
	return results
}

// processGroup は1グループのアイテムを抽出し、共有のアイテム枠で並列に処理します
func (j *AttachmentJob) processGroup(ctx context.Context, run *jobRun, group models.GroupMapping) models.GroupResult {
	log := run.log.With(zap.String("group", group.Title))
	log.Info("グループの処理を開始します", zap.String("folder", group.Folder))

	items, err := j.items.Resolve(ctx, ResolveRequest{
		BoardID:        run.boardID,
		GroupTitle:     group.Title,
		StatusColumnID: run.statusColumnID,
		TargetStatus:   j.config.TargetStatus,
		EmailColumnID:  run.emailColumnID,
		DateThreshold:  run.threshold,
	})
	if err != nil {
		log.Error("アイテムの取得に失敗しました", zap.Error(err))
		return models.FailedGroup(group.Title, err)
	}

	if len(items) == 0 {
		log.Info("対象アイテムはありません")
		return models.ProcessedGroup(group.Title, nil)
	}
	log.Info("対象アイテムが見つかりました", zap.Int("items", len(items)))

	itemResults := make([]models.ItemResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		// 空きができるまで待つ（全グループで共有）
		if err := run.itemSlots.Acquire(ctx, 1); err != nil {
			itemResults[i] = models.ItemResult{Item: item, Outcome: models.ItemFailure, Err: err}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer run.itemSlots.Release(1)
			itemResults[i] = j.processItem(ctx, run, item, group.Folder)
		}()
	}

	// すべてのgoroutineの完了を待つ
	wg.Wait()

	result := models.ProcessedGroup(group.Title, itemResults)
	log.Info(fmt.Sprintf("グループ集計: %d 件成功, %d 件失敗", result.Success, result.Failed))
	return result
}

// processItem は添付ファイルを取得してからステータスを更新します
// 途中のエラーや panic はすべて失敗の結果に変換します
func (j *AttachmentJob) processItem(ctx context.Context, run *jobRun, item models.ItemInfo, folder string) (result models.ItemResult) {
	log := run.log.With(zap.Int64("item_id", item.ItemID), zap.String("group", item.GroupName))
	result = models.ItemResult{Item: item, Outcome: models.ItemFailure}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = models.ItemFailure
			result.Err = fmt.Errorf("panic: %v", r)
			log.Error("アイテムの処理中に panic が発生しました", zap.Any("panic", r))
		}
	}()

	log.Debug("アイテムの処理を開始します")

	files, err := j.attachments.FetchAll(ctx, item.ItemID, folder, item.Email, item.GroupName)
	result.Files = files
	if err != nil {
		result.Err = err
		log.Error("アイテムの処理に失敗しました", zap.Error(err))
		return result
	}

	if err := j.status.SetStatus(ctx, item.ItemID, j.config.NewStatus, run.boardID); err != nil {
		result.Err = err
		log.Error("ステータスの更新に失敗しました", zap.Error(err))
		return result
	}

	if files > 0 {
		log.Info("アイテムの処理が完了しました", zap.Int("files", files), zap.String("status", j.config.NewStatus))
	} else {
		log.Warn("添付ファイルが見つかりませんでした", zap.String("status", j.config.NewStatus))
	}

	result.Outcome = models.ItemSuccess
	return result
}

// logBoardGroups はボード上のグループ名を一覧表示します（確認用）
func (j *AttachmentJob) logBoardGroups(ctx context.Context, boardID models.BoardID, log *zap.Logger) {
	groups, err := j.api.ListGroups(ctx, boardID)
	if err != nil {
		log.Warn("グループ一覧を取得できません", zap.Error(err))
		return
	}

	titles := make([]string, 0, len(groups))
	for _, g := range groups {
		titles = append(titles, g.Title)
	}
	log.Debug("ボードのグループ", zap.Strings("groups", titles))
}

// Summarize はグループ結果を合算します
// スキップしたグループは処理済みに数えず、取得に失敗したグループは GroupsFailed に数えます
func Summarize(results []models.GroupResult) models.RunSummary {
	summary := models.RunSummary{
		TotalGroups: len(results),
		Groups:      results,
	}

	for _, r := range results {
		summary.Success += r.Success
		summary.Failed += r.Failed
		if r.Processed {
			summary.GroupsProcessed++
		}
		if r.Err != nil {
			summary.GroupsFailed++
		}
	}

	return summary
}
