package model

import "errors"

var ErrInvalidKind = errors.New("invalid message kind: must be text, photo, video, or video_note")

// Kind classifies the content of a forwarded message.
type Kind int

const (
	KindText Kind = iota // plain text post
	KindPhoto
	KindVideo
	KindVideoNote // round video message; captions are sent separately
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindVideoNote:
		return "video_note"
	default:
		return "unknown"
	}
}

// ParseKind converts a stored string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text":
		return KindText, nil
	case "photo":
		return KindPhoto, nil
	case "video":
		return KindVideo, nil
	case "video_note":
		return KindVideoNote, nil
	default:
		return 0, ErrInvalidKind
	}
}

func (k Kind) Valid() bool {
	return k >= KindText && k <= KindVideoNote
}
