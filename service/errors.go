package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rushteam/cinesuggest/core"
)

// SeedError 表示某个种子标题解析失败。
type SeedError struct {
	Index int
	Title string
	Err   error
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("seed %d %q: %v", e.Index, e.Title, e.Err)
}

func (e *SeedError) Unwrap() error {
	return e.Err
}

// UserMessage 把任意错误转换成面向最终用户的提示，不包含内部细节。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var seedErr *SeedError
	switch {
	case core.IsUnknownTitle(err):
		if errors.As(err, &seedErr) {
			return fmt.Sprintf("Movie not recognized: %q. Please choose a title from the list.", seedErr.Title)
		}
		return "Movie not recognized. Please choose a title from the list."
	case core.IsInsufficientSeeds(err):
		return "Please choose more movies to base the recommendations on."
	case core.IsInsufficientSupport(err):
		return "Not enough information about the chosen movies to make recommendations. Try different movies."
	case core.IsInvalidInput(err):
		return "The request is invalid. Please check the algorithm and the number of recommendations."
	case core.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
		return "Recommendations are not available right now. Please try again shortly."
	default:
		return "Something went wrong while preparing your recommendations."
	}
}

// ErrorCode 返回错误代码，非 DomainError 返回 INTERNAL_ERROR。
func ErrorCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrorCodeUnavailable
	}
	if d := core.GetDomainError(err); d != nil {
		return d.Code
	}
	return core.ErrorCodeInternalError
}

// HTTPStatus 把错误代码映射为 HTTP 状态码。
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case core.ErrorCodeUnknownTitle, core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeInsufficientSeeds, core.ErrorCodeInsufficientSupport:
		return http.StatusUnprocessableEntity
	case core.ErrorCodeInvalidInput:
		return http.StatusBadRequest
	case core.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
