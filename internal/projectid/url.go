package projectid

import (
	"errors"
	"strings"
)

// ErrMalformedURL is returned when a URL lacks the two path separators
// needed to extract the repository name and author.
var ErrMalformedURL = errors.New("url must contain <author>/<name> after a leading segment")

// SplitURL extracts the repository name (after the last '/') and author
// (between the last two '/') from url.
//
//	https://github.com/golang/go -> name "go", author "golang"
//
// The last '/' must not be the first character and another '/' must precede it.
// A trailing '/' yields an empty name.
func SplitURL(url string) (name, author string, err error) {
	pos1 := strings.LastIndexByte(url, '/')
	if pos1 <= 0 {
		return "", "", ErrMalformedURL
	}
	pos2 := strings.LastIndexByte(url[:pos1], '/')
	if pos2 < 0 {
		return "", "", ErrMalformedURL
	}
	return url[pos1+1:], url[pos2+1 : pos1], nil
}

// GenerateFromURL splits url and derives the identifier of the resulting triple.
func GenerateFromURL(url string) (int64, error) {
	name, author, err := SplitURL(url)
	if err != nil {
		return 0, err
	}
	return Generate(name, author, url), nil
}
