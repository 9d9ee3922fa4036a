package pipeline

import (
	"path"
	"strings"
	"time"
	"unicode"
)

const slugMaxLength = 60

// fallbackTitleFromFileName derives a note title from the uploaded file name
// when the model produced none. Generic capture names ("recording", "Recording
// 3") carry no information, so they fall through to a timestamp title.
func fallbackTitleFromFileName(fileName string, now time.Time) string {
	base := path.Base(fileName)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")

	if base == "" || strings.HasPrefix(strings.ToLower(base), "recording") {
		return "Recording " + now.Format("Jan 2, 2006 15:04")
	}
	return base
}

// slugifyTitle turns a title into a storage-safe object name fragment:
// lowercase, runs of non-alphanumerics collapsed to single hyphens.
func slugifyTitle(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > slugMaxLength {
		slug = strings.Trim(slug[:slugMaxLength], "-")
	}
	return slug
}

// renamedAudioKey builds the post-processing object key for a recording: the
// original key's directory and extension around the slugified title. An empty
// slug yields an empty key, which callers treat as "do not rename".
func renamedAudioKey(audioKey, title string) string {
	slug := slugifyTitle(title)
	if slug == "" {
		return ""
	}
	ext := path.Ext(audioKey)
	dir := path.Dir(audioKey)
	if dir == "." || dir == "/" {
		return slug + ext
	}
	return dir + "/" + slug + ext
}
