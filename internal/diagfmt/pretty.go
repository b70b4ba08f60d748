package diagfmt

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"silica/internal/source"
)

// Options controls rendering.
type Options struct {
	Color bool
}

var (
	locColor   = color.New(color.Bold)
	noteColor  = color.New(color.FgCyan)
	caretColor = color.New(color.FgGreen, color.Bold)
)

// FormatLocation renders a location as "file:line:col" using the
// directive-adjusted file name and line number. Macro locations are anchored
// at their file expansion site.
func FormatLocation(sm *source.SourceManager, loc source.SourceLocation) string {
	if !loc.Valid() {
		return "<no location>"
	}
	anchored := sm.GetFullyExpandedLoc(loc)
	return fmt.Sprintf("%s:%d:%d",
		sm.GetFileName(anchored),
		sm.GetLineNumber(anchored),
		sm.GetColumnNumber(anchored))
}

// Caret renders the source line containing loc followed by an underline:
// a ^ at the location and ~ continuation for width-1 more characters.
// Alignment accounts for display widths, so wide runes and tabs in the
// prefix don't skew the marker. loc must resolve to a file location.
func Caret(sm *source.SourceManager, loc source.SourceLocation, width int, opts Options) string {
	anchored := sm.GetFullyExpandedLoc(loc)
	text := sm.GetSourceText(anchored.Buffer())
	line := extractLine(text, anchored.Offset())
	col := int(sm.GetColumnNumber(anchored))

	prefix := line
	if col-1 <= len(line) {
		prefix = line[:col-1]
	}
	pad := strings.Repeat(" ", displayWidth(prefix))

	if width < 1 {
		width = 1
	}
	marker := "^" + strings.Repeat("~", width-1)
	if opts.Color {
		marker = caretColor.Sprint(marker)
	}
	return expandTabs(line) + "\n" + pad + marker
}

// ExpansionTrace returns one note per macro expansion layer, innermost
// first, for rendering "expanded from" chains under a diagnostic.
func ExpansionTrace(sm *source.SourceManager, loc source.SourceLocation, opts Options) []string {
	var notes []string
	for sm.IsMacroLoc(loc) {
		name := sm.GetMacroName(loc)
		next := sm.GetExpansionLoc(loc)

		var note string
		if name != "" {
			note = fmt.Sprintf("expanded from macro '%s' at %s", name, FormatLocation(sm, next))
		} else {
			note = fmt.Sprintf("expanded from here: %s", FormatLocation(sm, next))
		}
		if opts.Color {
			note = noteColor.Sprint("note: ") + note
		} else {
			note = "note: " + note
		}
		notes = append(notes, note)
		loc = next
	}
	return notes
}

// Header renders the standard one-line diagnostic prefix.
func Header(sm *source.SourceManager, loc source.SourceLocation, severity, message string, opts Options) string {
	where := FormatLocation(sm, loc)
	if opts.Color {
		where = locColor.Sprint(where)
	}
	return fmt.Sprintf("%s: %s: %s", where, severity, message)
}

// extractLine returns the line of text containing offset, without its
// trailing newline.
func extractLine(text []byte, offset uint64) string {
	if offset > uint64(len(text)) {
		offset = uint64(len(text))
	}
	start := offset
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end := offset
	for end < uint64(len(text)) && text[end] != '\n' {
		end++
	}
	return string(text[start:end])
}

const tabStop = 4

// displayWidth measures the terminal width of a line prefix, expanding tabs
// to the next tab stop.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r == '\t' {
			w += tabStop - w%tabStop
			continue
		}
		w += runewidth.RuneWidth(r)
	}
	return w
}

// expandTabs keeps the rendered line consistent with displayWidth.
func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var sb strings.Builder
	w := 0
	for _, r := range s {
		if r == '\t' {
			n := tabStop - w%tabStop
			sb.WriteString(strings.Repeat(" ", n))
			w += n
			continue
		}
		sb.WriteRune(r)
		w += runewidth.RuneWidth(r)
	}
	return sb.String()
}
