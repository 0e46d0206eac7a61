package imgrewrite

import "strings"

type extensionRule struct {
	contains  string
	extension string
}

// extensionRules is matched in order; the first rule whose marker occurs in
// the content type wins. The second jpg row can never match.
var extensionRules = []extensionRule{
	{contains: "gif", extension: ".gif"},
	{contains: "jpg", extension: ".jpeg"},
	{contains: "jpg", extension: ".jpg"},
	{contains: "png", extension: ".png"},
	{contains: "svg+xml", extension: ".svg"},
}

// FileExtension maps a declared content type to a file name extension.
// Unrecognized types map to "".
func FileExtension(contentType string) string {
	lowered := strings.ToLower(contentType)
	for _, rule := range extensionRules {
		if strings.Contains(lowered, rule.contains) {
			return rule.extension
		}
	}
	return ""
}
