package services

import (
	"context"
	"fmt"

	"mondaydownloader/config"
	"mondaydownloader/models"
)

// CapabilityDownloadAttachments は添付ファイルダウンロードの capability 名です
const CapabilityDownloadAttachments = "download_attachments"

// CapabilityRequest は標準入力から受け取る要求です
type CapabilityRequest struct {
	Capability string         `json:"capability"`
	Args       CapabilityArgs `json:"args"`
}

// CapabilityArgs は download_attachments の引数です
type CapabilityArgs struct {
	APIToken       string            `json:"api_token"`
	WorkspaceName  string            `json:"workspace_name"`
	BoardName      string            `json:"board_name"`
	Groups         []string          `json:"groups"`
	GroupFolderMap map[string]string `json:"group_folder_map"`
}

// CapabilityResult は成功時の集計です
type CapabilityResult struct {
	GroupsProcessed int   `json:"groups_processed"`
	TotalGroups     int   `json:"total_groups"`
	Success         int   `json:"success"`
	Failed          int   `json:"failed"`
	BoardID         int64 `json:"board_id"`
}

// CapabilityResponse は標準出力に書き出す応答です。Result と Error のどちらか一方だけを持ちます
type CapabilityResponse struct {
	Result     *CapabilityResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	Capability string            `json:"capability"`
}

// JobRunner は設定を受け取ってジョブを実行します
type JobRunner func(ctx context.Context, cfg *config.Config) (*models.RunSummary, error)

// HandleCapability は要求を処理して応答を作ります。エラーは応答の Error に入ります
func HandleCapability(ctx context.Context, base *config.Config, req CapabilityRequest, run JobRunner) CapabilityResponse {
	if req.Capability != CapabilityDownloadAttachments {
		return CapabilityResponse{
			Error:      "Unknown capability: " + req.Capability,
			Capability: req.Capability,
		}
	}

	cfg := req.Args.apply(base)
	if err := cfg.Validate(); err != nil {
		return CapabilityResponse{Error: err.Error(), Capability: req.Capability}
	}

	summary, err := run(ctx, cfg)
	if err != nil {
		return CapabilityResponse{Error: err.Error(), Capability: req.Capability}
	}
	if summary == nil {
		return CapabilityResponse{Error: "集計結果がありません", Capability: req.Capability}
	}

	return CapabilityResponse{
		Result: &CapabilityResult{
			GroupsProcessed: summary.GroupsProcessed,
			TotalGroups:     summary.TotalGroups,
			Success:         summary.Success,
			Failed:          summary.Failed,
			BoardID:         int64(summary.BoardID),
		},
		Capability: req.Capability,
	}
}

// apply は base をコピーし、要求の引数で上書きした設定を返します
// フォルダの対応がないグループは Folder を空にしてスキップ対象にします
func (a CapabilityArgs) apply(base *config.Config) *config.Config {
	cfg := *base
	if a.APIToken != "" {
		cfg.MondayAPIToken = a.APIToken
	}
	if a.WorkspaceName != "" {
		cfg.WorkspaceName = a.WorkspaceName
	}
	if a.BoardName != "" {
		cfg.BoardName = a.BoardName
	}

	if a.Groups != nil {
		cfg.Groups = make([]models.GroupMapping, 0, len(a.Groups))
		for _, title := range a.Groups {
			cfg.Groups = append(cfg.Groups, models.GroupMapping{Title: title, Folder: a.GroupFolderMap[title]})
		}
	}
	return &cfg
}

// String はログ用に board_id を含めた短い表現を返します
func (r *CapabilityResult) String() string {
	return fmt.Sprintf("board=%d groups=%d/%d success=%d failed=%d",
		r.BoardID, r.GroupsProcessed, r.TotalGroups, r.Success, r.Failed)
}
