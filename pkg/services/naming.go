package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"media-portfolio/pkg/models"
)

var (
	timestampPrefixRegex = regexp.MustCompile(`^\d+_`)
	extensionRegex       = regexp.MustCompile(`\.[^/.]+$`)
)

// BuildKey names an upload: <collection>/<epoch millis>_<original filename>.
// The timestamp keeps repeated uploads of the same filename from colliding.
func BuildKey(c models.Collection, t time.Time, filename string) string {
	return c.Prefix() + strconv.FormatInt(t.UnixMilli(), 10) + "_" + filename
}

// ExtractFilename strips the collection path and upload timestamp from a key
// and turns underscores into spaces.
// For example: "videos/1678901234567_my_video.mp4" -> "my video.mp4"
func ExtractFilename(key string) string {
	filename := key[strings.LastIndex(key, "/")+1:]
	filename = timestampPrefixRegex.ReplaceAllString(filename, "")
	return strings.ReplaceAll(filename, "_", " ")
}

// GenerateTitle derives a display title from a filename.
// For example: "my-video-file.mp4" -> "My Video File"
func GenerateTitle(filename string) string {
	base := extensionRegex.ReplaceAllString(filename, "")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)

	var b strings.Builder
	b.Grow(len(base))
	prevWord := false
	for _, r := range base {
		word := isWordRune(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevWord = word
	}
	return b.String()
}

// isWordRune matches the ASCII notion of a word character
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// CollectionForKey returns the media collection a key belongs to
func CollectionForKey(key string) (models.Collection, bool) {
	for _, c := range models.Collections {
		if strings.HasPrefix(key, c.Prefix()) && len(key) > len(c.Prefix()) {
			return c, true
		}
	}
	return "", false
}

// naturalLess compares strings in a way that treats numbers as numbers rather than characters
// For example: "file2" < "file10" when using naturalLess
func naturalLess(s1, s2 string) bool {
	i, j := 0, 0
	for i < len(s1) && j < len(s2) {
		// Skip leading spaces
		for i < len(s1) && unicode.IsSpace(rune(s1[i])) {
			i++
		}
		for j < len(s2) && unicode.IsSpace(rune(s2[j])) {
			j++
		}

		if i >= len(s1) || j >= len(s2) {
			break
		}

		if isDigit(s1[i]) && isDigit(s2[j]) {
			start1 := i
			for i < len(s1) && isDigit(s1[i]) {
				i++
			}
			start2 := j
			for j < len(s2) && isDigit(s2[j]) {
				j++
			}

			// Compare digit runs by magnitude without converting them, so long
			// runs cannot overflow
			num1 := strings.TrimLeft(s1[start1:i], "0")
			num2 := strings.TrimLeft(s2[start2:j], "0")
			if len(num1) != len(num2) {
				return len(num1) < len(num2)
			}
			if num1 != num2 {
				return num1 < num2
			}
		} else {
			if s1[i] != s2[j] {
				return s1[i] < s2[j]
			}
			i++
			j++
		}
	}

	return len(s1)-i < len(s2)-j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
