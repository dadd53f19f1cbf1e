package app

import "strings"

// FileKind is the single rendering category assigned to every key.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindImage
	KindPDF
	KindVideo
	KindAudio
	KindText
)

func (k FileKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindText:
		return "text"
	}
	return "unknown"
}

var (
	imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
	pdfExts   = []string{".pdf"}
	audioExts = []string{".mp3", ".wav", ".ogg", ".m4a", ".webm"}
	videoExts = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".flv"}
	textExts  = []string{".txt", ".md", ".log", ".csv", ".json", ".xml", ".yaml", ".yml"}
)

func hasExtIn(key string, exts []string) bool {
	lower := strings.ToLower(key)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func IsImage(key string) bool { return hasExtIn(key, imageExts) }
func IsPDF(key string) bool   { return hasExtIn(key, pdfExts) }
func IsAudio(key string) bool { return hasExtIn(key, audioExts) }
func IsVideo(key string) bool { return hasExtIn(key, videoExts) }
func IsText(key string) bool  { return hasExtIn(key, textExts) }

// Classify maps a key to exactly one kind. Video is checked before audio so
// ambiguous containers such as .webm always get the video player.
func Classify(key string) FileKind {
	switch {
	case IsImage(key):
		return KindImage
	case IsPDF(key):
		return KindPDF
	case IsVideo(key):
		return KindVideo
	case IsAudio(key):
		return KindAudio
	case IsText(key):
		return KindText
	}
	return KindUnknown
}

// FilterByKind keeps the keys whose classification matches kind ("image",
// "video", ...). Thumbnail mirror keys never match.
func FilterByKind(keys []string, kind string) []string {
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, ThumbnailPrefix) {
			continue
		}
		if Classify(key).String() == kind {
			filtered = append(filtered, key)
		}
	}
	return filtered
}
