// ABOUTME: EditorState and cursor-aware insertion for the inline-image content editor.
// ABOUTME: Offsets are byte offsets into UTF-8 text, clamped onto rune boundaries after every mutation.

package editor

import "unicode/utf8"

// State is the editable text plus the last known selection range.
type State struct {
	Text  string
	Start int
	End   int
	// Focused is false when the selection does not come from a mounted,
	// focused editing surface. Insertions then append to the end.
	Focused bool
}

// Selection is a cursor range captured when an insertion is triggered.
// Start == End is a collapsed cursor. Valid is false when no selection
// information was available.
type Selection struct {
	Start int
	End   int
	Valid bool
}

// Cursor returns a collapsed, valid selection at offset.
func Cursor(offset int) Selection {
	return Selection{Start: offset, End: offset, Valid: true}
}

// Selection returns the state's selection range.
func (st State) Selection() Selection {
	return Selection{Start: st.Start, End: st.End, Valid: st.Focused}
}

// Clamp orders and bounds the selection so that 0 <= Start <= End <= len(Text).
func (st *State) Clamp() {
	st.Start, st.End = clampRange(st.Text, st.Start, st.End)
}

// InsertAtCursor replaces text[sel.Start:sel.End] with fragment and returns
// the new text along with the cursor offset immediately after the fragment.
// An invalid selection appends the fragment to the end of the text.
func InsertAtCursor(text string, sel Selection, fragment string) (string, int) {
	if !sel.Valid {
		return text + fragment, len(text) + len(fragment)
	}
	start, end := clampRange(text, sel.Start, sel.End)
	return text[:start] + fragment + text[end:], start + len(fragment)
}

func clampRange(text string, start, end int) (int, int) {
	if start > end {
		start, end = end, start
	}
	return clampOffset(text, start), clampOffset(text, end)
}

// clampOffset bounds off into [0, len(text)] and moves it back onto the
// start of the rune it points into.
func clampOffset(text string, off int) int {
	if off <= 0 {
		return 0
	}
	if off >= len(text) {
		return len(text)
	}
	for off > 0 && !utf8.RuneStart(text[off]) {
		off--
	}
	return off
}

// UTF16ToByteOffset converts an offset counted in UTF-16 code units, as
// reported by browser selection APIs, into a byte offset into text.
func UTF16ToByteOffset(text string, units int) int {
	if units <= 0 {
		return 0
	}
	n := 0
	for i, r := range text {
		if n >= units {
			return i
		}
		n += utf16Len(r)
	}
	return len(text)
}

// ByteToUTF16Offset converts a byte offset into text into UTF-16 code units.
func ByteToUTF16Offset(text string, off int) int {
	off = clampOffset(text, off)
	n := 0
	for _, r := range text[:off] {
		n += utf16Len(r)
	}
	return n
}

func utf16Len(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}
