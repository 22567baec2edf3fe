package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrGameNotFound       = errors.New("game not found")

	// Ошибки валидации и бизнес-правил. The specific errors wrap
	// ErrValidationFailed so handlers can match the whole family.
	ErrValidationFailed = errors.New("validation failed")

	ErrRoundNotMakeup       = fmt.Errorf("%w: round is not a makeup round", ErrValidationFailed)
	ErrGameAlreadyPostponed = fmt.Errorf("%w: game is already postponed", ErrValidationFailed)
	ErrCrossTournament      = fmt.Errorf("%w: game and makeup round belong to different tournaments", ErrValidationFailed)
	ErrInvalidSchedule      = fmt.Errorf("%w: invalid date or start time", ErrValidationFailed)
	ErrInvalidResult        = fmt.Errorf("%w: invalid game result", ErrValidationFailed)
	ErrGameLinkMismatch     = fmt.Errorf("%w: game is not the successor of the given original", ErrValidationFailed)
	ErrPlayerRequired       = fmt.Errorf("%w: speler1_id is required", ErrValidationFailed)

	// Конфликт нумерации под конкурентным созданием inhaaldagen.
	// Retryable: the caller may repeat the request.
	ErrRoundNumberConflict = errors.New("round numbering conflict, please retry")

	// Ошибки аутентификации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
)
