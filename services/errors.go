package services

import "errors"

var (
	// ErrNotFound はボード・カラム・グループが解決できなかったことを表します
	ErrNotFound = errors.New("見つかりません")

	// ErrBoardNotFound はボード名に一致するボードがないことを表します
	ErrBoardNotFound error = &notFoundError{what: "ボード"}

	// ErrColumnNotFound は必要なカラムがボードにないことを表します
	ErrColumnNotFound error = &notFoundError{what: "カラム"}

	// ErrMutationFailed はステータス更新が拒否されたことを表します
	ErrMutationFailed = errors.New("ステータス更新失敗")
)

// notFoundError は errors.Is(err, ErrNotFound) でも判定できる個別の未検出エラーです
type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string {
	return e.what + "が見つかりません"
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}
