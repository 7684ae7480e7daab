package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mondaydownloader/models"
	"mondaydownloader/utils"
)

// nullURL は public_url が未設定のときに返されることがある値です
const nullURL = "null"

// invalidFileNameChars はファイル名に使えない文字です
const invalidFileNameChars = `<>:"|?*\/`

// AttachmentService はアイテムの添付ファイルをダウンロードして保存します
type AttachmentService struct {
	api   AssetFetcher
	store FileSaver
	now   func() time.Time
}

// NewAttachmentService は新しい添付ファイルサービスを作成します
func NewAttachmentService(api AssetFetcher, store FileSaver) *AttachmentService {
	return &AttachmentService{
		api:   api,
		store: store,
		now:   time.Now,
	}
}

// FetchAll はアイテムの全アセットをダウンロードし、保存できた件数を返します
// エラーを返すのはアセット一覧の取得に失敗した場合だけで、個々のアセットの失敗は記録して続行します
func (s *AttachmentService) FetchAll(ctx context.Context, itemID int64, dir, email, groupName string) (int, error) {
	log := utils.Logger().With(zap.Int64("item_id", itemID), zap.String("group", groupName))

	assets, found, err := s.api.ItemAssets(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("添付ファイル一覧の取得エラー: %w", err)
	}
	if !found {
		log.Error("アイテムが返されませんでした")
		return 0, nil
	}

	saved := 0
	for _, asset := range assets {
		if asset.ID == "" {
			log.Warn("IDのないアセットをスキップします", zap.String("name", asset.Name))
			continue
		}

		path, err := s.fetchOne(ctx, asset, itemID, dir, email, groupName, log)
		if err != nil {
			log.Error("アセットのダウンロードに失敗しました", zap.String("asset_id", asset.ID), zap.Error(err))
			continue
		}

		saved++
		log.Info("ダウンロードしました", zap.String("asset_id", asset.ID), zap.String("path", path))
	}

	if saved == 0 {
		log.Info("保存できた添付ファイルはありません", zap.Int("assets", len(assets)))
	} else {
		log.Info("添付ファイルを保存しました", zap.Int("saved", saved), zap.Int("assets", len(assets)))
	}
	return saved, nil
}

func (s *AttachmentService) fetchOne(ctx context.Context, asset models.Asset, itemID int64, dir, email, groupName string, log *zap.Logger) (string, error) {
	data, err := s.download(ctx, asset, log)
	if err != nil {
		return "", err
	}

	fileName := BuildAttachmentFileName(asset, itemID, email, groupName, s.now())
	return s.store.Save(fileName, data, dir)
}

// download は公開URL、次に認証付きファイルAPIの順で取得を試みます
func (s *AttachmentService) download(ctx context.Context, asset models.Asset, log *zap.Logger) ([]byte, error) {
	var publicErr error
	if asset.URL != "" && asset.URL != nullURL {
		data, err := s.api.DownloadFile(ctx, asset.URL)
		if err == nil {
			return data, nil
		}
		publicErr = err
		log.Debug("公開URLからの取得に失敗しました。APIエンドポイントを試します",
			zap.String("asset_id", asset.ID), zap.Error(err))
	}

	data, err := s.api.DownloadFileWithAuth(ctx, s.api.FileURL(asset.ID))
	if err != nil {
		return nil, errors.Join(publicErr, err)
	}
	return data, nil
}

// BuildAttachmentFileName は {名前}__{アイテムID}__{メール}__{グループ}{拡張子} 形式のファイル名を作ります
// メールとグループが空の場合は "noemail" / "nogroup" を使います
func BuildAttachmentFileName(asset models.Asset, itemID int64, email, groupName string, now time.Time) string {
	fileName := asset.Name
	if !strings.Contains(fileName, ".") && asset.Extension != "" {
		fileName = fileName + "." + strings.TrimPrefix(asset.Extension, ".")
	}

	baseName := SanitizeFileName(fileName, now)
	ext := ""
	if lastDot := strings.LastIndex(baseName, "."); lastDot >= 0 {
		baseName, ext = baseName[:lastDot], baseName[lastDot:]
	}

	safeEmail := "noemail"
	if email != "" {
		safeEmail = SanitizeFileName(email, now)
	}
	safeGroup := "nogroup"
	if groupName != "" {
		safeGroup = SanitizeFileName(groupName, now)
	}
	safeGroup = strings.NewReplacer("/", "_", `\`, "_").Replace(safeGroup)

	return baseName + "__" + strconv.FormatInt(itemID, 10) + "__" + safeEmail + "__" + safeGroup + ext
}

// SanitizeFileName はファイル名に使えない文字を "_" に置き換えて前後の空白を削ります
// 結果が空になる場合は attachment_{ミリ秒} を返します
func SanitizeFileName(name string, now time.Time) string {
	sanitized := strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFileNameChars, r) {
			return '_'
		}
		return r
	}, name))

	if sanitized == "" {
		return "attachment_" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	return sanitized
}
