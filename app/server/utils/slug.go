package utils

import "strings"

// Slugify 把标题转换为 URL 友好的标识：小写、字母数字保留、其余折叠为连字符
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true // 避免以连字符开头

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "post"
	}
	return slug
}
