package core

import "github.com/rs/zerolog/log"

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notifier emits transient user-facing notices for state-changing
// actions (mute, camera, share, hand-raise, leave).
type Notifier interface {
	Notify(level NoticeLevel, text string)
}

// LogNotifier writes notices to the process log. Used when no
// presentation surface is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(level NoticeLevel, text string) {
	if level == NoticeError {
		log.Error().Str("module", "core.notify").Msg(text)
		return
	}
	log.Info().Str("module", "core.notify").Msg(text)
}
