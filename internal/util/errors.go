package util

import "errors"

var (
	ErrUserNotFound            = errors.New("用户不存在")
	ErrEmailRegistered         = errors.New("该邮箱已被注册")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrEvaluationNotFound      = errors.New("evaluation not found")
	ErrQuizNotFound            = errors.New("quiz not found")
	ErrSessionNotFound         = errors.New("session not found")
	ErrWindowNotOpen           = errors.New("evaluation window not yet open")
	ErrWindowClosed            = errors.New("evaluation window closed")
	ErrAlreadySubmitted        = errors.New("submission already completed")
	ErrSessionAlreadySubmitted = errors.New("session already submitted, answers are frozen")
	ErrInvalidQuestion         = errors.New("question does not belong to the session quiz")
	ErrEntropyUnavailable      = errors.New("entropy source unavailable")
)
