// ABOUTME: Rune-aware editing operations applied to an editor.State by the terminal editor.
// ABOUTME: Offsets are bytes; every movement lands on a rune boundary.
package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/2389-research/listingdesk/editor"
)

// insertText replaces the selection with s and leaves the cursor after it.
func insertText(st *editor.State, s string) {
	text, cursor := editor.InsertAtCursor(st.Text, editor.Selection{Start: st.Start, End: st.End, Valid: true}, s)
	st.Text = text
	st.Start, st.End = cursor, cursor
}

func deleteBackward(st *editor.State) {
	if st.Start != st.End {
		deleteSelection(st)
		return
	}
	if st.End == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(st.Text[:st.End])
	st.Text = st.Text[:st.End-size] + st.Text[st.End:]
	st.End -= size
	st.Start = st.End
}

func deleteForward(st *editor.State) {
	if st.Start != st.End {
		deleteSelection(st)
		return
	}
	if st.End >= len(st.Text) {
		return
	}
	_, size := utf8.DecodeRuneInString(st.Text[st.End:])
	st.Text = st.Text[:st.End] + st.Text[st.End+size:]
}

func deleteSelection(st *editor.State) {
	st.Text = st.Text[:st.Start] + st.Text[st.End:]
	st.End = st.Start
}

func moveLeft(st *editor.State) {
	pos := st.Start
	if st.Start == st.End && pos > 0 {
		_, size := utf8.DecodeLastRuneInString(st.Text[:pos])
		pos -= size
	}
	st.Start, st.End = pos, pos
}

func moveRight(st *editor.State) {
	pos := st.End
	if st.Start == st.End && pos < len(st.Text) {
		_, size := utf8.DecodeRuneInString(st.Text[pos:])
		pos += size
	}
	st.Start, st.End = pos, pos
}

func lineStart(text string, pos int) int {
	return strings.LastIndexByte(text[:pos], '\n') + 1
}

func lineEnd(text string, pos int) int {
	if i := strings.IndexByte(text[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(text)
}

func moveHome(st *editor.State) {
	pos := lineStart(st.Text, st.End)
	st.Start, st.End = pos, pos
}

func moveEnd(st *editor.State) {
	pos := lineEnd(st.Text, st.End)
	st.Start, st.End = pos, pos
}

// moveUp and moveDown keep the rune column, stopping at the end of shorter lines.
func moveUp(st *editor.State) {
	start := lineStart(st.Text, st.End)
	if start == 0 {
		st.Start, st.End = 0, 0
		return
	}
	col := utf8.RuneCountInString(st.Text[start:st.End])
	prev := lineStart(st.Text, start-1)
	pos := advanceColumn(st.Text, prev, start-1, col)
	st.Start, st.End = pos, pos
}

func moveDown(st *editor.State) {
	start := lineStart(st.Text, st.End)
	end := lineEnd(st.Text, st.End)
	if end == len(st.Text) {
		st.Start, st.End = end, end
		return
	}
	col := utf8.RuneCountInString(st.Text[start:st.End])
	next := end + 1
	pos := advanceColumn(st.Text, next, lineEnd(st.Text, next), col)
	st.Start, st.End = pos, pos
}

// advanceColumn returns the offset col runes after from, bounded by limit.
func advanceColumn(text string, from, limit, col int) int {
	pos := from
	for i := 0; i < col && pos < limit; i++ {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}
