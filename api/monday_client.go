package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"mondaydownloader/config"
)

// MondayClient はmonday.com APIとのやり取りを処理します
type MondayClient struct {
	config *config.Config
	client *http.Client
}

// graphQLRequest はGraphQLエンドポイントへのPOSTボディです
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// NewMondayClient は新しいmonday.comクライアントを作成します
// RequestTimeout が設定されていれば各リクエストに上限時間を設けます
func NewMondayClient(cfg *config.Config) *MondayClient {
	return &MondayClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Post はGraphQLクエリを送信し、応答の data 部分を返します
// 応答に errors（または error_message）が含まれる場合は RemoteQueryError を返します
func (m *MondayClient) Post(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	payloadBytes, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.MondayAPIURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("Authorization", m.config.MondayAPIToken)
	req.Header.Set("Content-Type", "application/json")
	if m.config.MondayAPIVersion != "" {
		req.Header.Set("API-Version", m.config.MondayAPIVersion)
	}

	body, err := m.do(req)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("レスポンス解析エラー: JSONではありません: %.200s", string(body))
	}

	if errs := gjson.GetBytes(body, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		messages := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			msg := e.Get("message").String()
			if msg == "" {
				msg = e.Raw
			}
			messages = append(messages, msg)
		}
		return nil, &RemoteQueryError{Messages: messages}
	}

	if msg := gjson.GetBytes(body, "error_message"); msg.Exists() && msg.String() != "" {
		return nil, &RemoteQueryError{Messages: []string{msg.String()}}
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, &RemoteQueryError{Messages: []string{"data がありません"}}
	}

	return json.RawMessage(data.Raw), nil
}

// DownloadFile は公開URLからファイルをダウンロードします（認証なし）
func (m *MondayClient) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	return m.download(ctx, fileURL, false)
}

// DownloadFileWithAuth はmonday.comのファイルAPIからダウンロードします（認証あり）
func (m *MondayClient) DownloadFileWithAuth(ctx context.Context, fileURL string) ([]byte, error) {
	return m.download(ctx, fileURL, true)
}

// FileURL はアセットIDに対応する認証付きファイルエンドポイントを返します
func (m *MondayClient) FileURL(assetID string) string {
	return m.config.MondayFileURL + "?assetId=" + url.QueryEscape(assetID)
}

func (m *MondayClient) download(ctx context.Context, fileURL string, authenticated bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	if authenticated {
		req.Header.Set("Authorization", m.config.MondayAPIToken)
	}

	return m.do(req)
}

// do はリクエストを送信し、2xx以外は TransportError として返します
func (m *MondayClient) do(req *http.Request) ([]byte, error) {
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み込みエラー: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return body, nil
}
