package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// Hosts that serve Naver blog posts.
var validHosts = map[string]struct{}{
	"blog.naver.com":   {},
	"m.blog.naver.com": {},
}

// Normalize parses any accepted URL shape into the canonical reference.
// Accepted shapes: the desktop and mobile path style /{blogID}/{logNo}, and
// the PostView style with blogId/logNo query parameters. The canonical form
// is always the desktop path style, so path and query references to the same
// post compare equal.
func Normalize(rawURL string) (PostReference, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return PostReference{}, NewError(KindInvalidURL, fmt.Sprintf("unparsable url %q", rawURL), err)
	}
	host := strings.ToLower(u.Hostname())
	if _, ok := validHosts[host]; !ok {
		return PostReference{}, NewError(KindInvalidURL, fmt.Sprintf("host %q is not a naver blog host", host), nil)
	}

	blogID, logNo := fromPath(u)
	if blogID == "" || logNo == "" {
		blogID, logNo = fromPostView(u)
	}
	if blogID == "" || logNo == "" {
		return PostReference{}, NewError(KindUnparsableReference, fmt.Sprintf("no blog/post ids in %q", rawURL), nil)
	}

	return PostReference{
		BlogID:       blogID,
		LogNo:        logNo,
		CanonicalURL: fmt.Sprintf("https://blog.naver.com/%s/%s", blogID, logNo),
	}, nil
}

// fromPath matches /{blogID}/{logNo} where logNo is all digits.
func fromPath(u *url.URL) (string, string) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 {
		return "", ""
	}
	blogID, logNo := parts[0], parts[1]
	if blogID == "" || !isDigits(logNo) {
		return "", ""
	}
	return blogID, logNo
}

// fromPostView matches the legacy PostView.naver / PostView.nhn shape.
func fromPostView(u *url.URL) (string, string) {
	base := strings.ToLower(strings.Trim(u.Path, "/"))
	if base != "postview.naver" && base != "postview.nhn" {
		return "", ""
	}
	q := u.Query()
	blogID := q.Get("blogId")
	logNo := q.Get("logNo")
	if blogID == "" || !isDigits(logNo) {
		return "", ""
	}
	return blogID, logNo
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
