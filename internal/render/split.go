package render

import (
	"strings"
	"unicode/utf8"
)

// Split breaks text into chunks of at most max characters, packing whole
// paragraphs greedily and falling back to sentence boundaries for
// paragraphs that do not fit on their own. A single sentence longer than
// max is not split further and may exceed the limit; this is a known,
// deliberate property of the splitter. The first chunk is the one that
// should carry reply-to semantics.
func Split(text string, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var parts []string
	current := ""

	for _, paragraph := range strings.Split(text, "\n\n") {
		if utf8.RuneCountInString(paragraph) > max {
			for _, sentence := range strings.Split(paragraph, ". ") {
				candidate := sentence + ". "
				if utf8.RuneCountInString(current+candidate) <= max {
					current += candidate
				} else {
					if current != "" {
						parts = append(parts, current)
					}
					current = candidate
				}
			}
		} else if utf8.RuneCountInString(current+paragraph+"\n\n") <= max {
			current += paragraph + "\n\n"
		} else {
			if current != "" {
				parts = append(parts, current)
			}
			current = paragraph + "\n\n"
		}
	}

	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

// Render flattens markdown and splits the result into sendable chunks.
func Render(markdown string, max int) []string {
	return Split(Flatten(markdown), max)
}
