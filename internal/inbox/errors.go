package inbox

import "errors"

var (
	ErrUnknownConversation   = errors.New("unknown conversation")
	ErrDuplicateConversation = errors.New("duplicate conversation id")
	ErrEmptyRoster           = errors.New("roster has no conversations")
	ErrEmptyBody             = errors.New("message body is empty")
	ErrInvalidName           = errors.New("counterpart name is required")
	ErrNoReplyPhrases        = errors.New("reply phrase set is empty")
)
