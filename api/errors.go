package api

import (
	"fmt"
	"strings"
)

// TransportError はHTTPレベルの失敗（2xx以外の応答、または通信エラー）を表します
// 通信エラーの場合 StatusCode は0で、Err に原因が入ります
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("リクエスト送信エラー (%s %s): %v", e.Method, e.URL, e.Err)
	}
	body := e.Body
	if body == "" {
		body = "No error body"
	}
	return fmt.Sprintf("HTTPエラー %d (%s %s): %s", e.StatusCode, e.Method, e.URL, body)
}

// RemoteQueryError はGraphQL応答に errors が含まれていたことを表します
type RemoteQueryError struct {
	Messages []string
}

func (e *RemoteQueryError) Error() string {
	return "GraphQLエラー: " + strings.Join(e.Messages, "; ")
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
