// Command ropeterm is a minimal terminal text editor that exercises the
// rope and buffer packages directly against a real terminal, rather than
// through the full widget framework: rope addressing and coalescing are the
// thing under test here, not layout or theming.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/fsnotify/fsnotify"
	"github.com/gdamore/tcell/v3"
	"golang.org/x/term"

	"github.com/tekugo/gorope/buffer"
)


// statusLog is a small fixed-size ring buffer of recent status messages,
// shown on the last screen row. Same shape as an in-app log widget would
// use, minus the sortable/filterable columns a real table view needs.
type statusLog struct {
	entries []string
	next    int
	filled  bool
}

func newStatusLog(size int) *statusLog {
	return &statusLog{entries: make([]string, size)}
}

func (l *statusLog) add(format string, args ...any) {
	l.entries[l.next] = fmt.Sprintf(format, args...)
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.filled = true
	}
}

func (l *statusLog) last() string {
	i := l.next - 1
	if i < 0 {
		if !l.filled {
			return ""
		}
		i = len(l.entries) - 1
	}
	return l.entries[i]
}

// editor holds the terminal session state: the coalescing buffer backing the
// document, the cursor position in characters, and the viewport's top line.
type editor struct {
	buf    *buffer.Buffer
	cursor int // character offset into buf
	top    int // first visible line
	path   string
	log    *statusLog
	dirty  bool
}

func newEditor(path string) *editor {
	e := &editor{log: newStatusLog(8)}
	if path == "" {
		e.buf = buffer.New()
		return e
	}
	e.path = path
	data, err := os.ReadFile(path)
	if err != nil {
		e.buf = buffer.New()
		e.log.add("new file %s", path)
		return e
	}
	e.buf = buffer.NewFromString(string(data))
	e.log.add("loaded %s (%d chars)", path, e.buf.LenChars())
	return e
}

// lines splits the buffer's current content into display lines. Good enough
// for a demo editor; a production editor would index line starts instead of
// rescanning on every redraw.
func (e *editor) lines() []string {
	return strings.Split(e.buf.String(), "\n")
}

// lineCol converts the character cursor into a zero-based (line, col) pair.
func (e *editor) lineCol() (line, col int) {
	pos := 0
	for i, l := range e.lines() {
		n := len([]rune(l))
		if e.cursor <= pos+n {
			return i, e.cursor - pos
		}
		pos += n + 1 // +1 for the newline
	}
	return 0, 0
}

// charOffset is the inverse of lineCol: given a (line, col), clamped to the
// document's actual shape, it returns the character offset.
func (e *editor) charOffset(line, col int) int {
	ls := e.lines()
	if line < 0 {
		line = 0
	}
	if line >= len(ls) {
		line = len(ls) - 1
	}
	runes := []rune(ls[line])
	if col < 0 {
		col = 0
	}
	if col > len(runes) {
		col = len(runes)
	}
	pos := 0
	for i := 0; i < line; i++ {
		pos += len([]rune(ls[i])) + 1
	}
	return pos + col
}

func (e *editor) insertRune(r rune) {
	e.buf.Insert(e.cursor, string(r))
	e.cursor++
	e.dirty = true
}

func (e *editor) backspace() {
	if e.cursor == 0 {
		return
	}
	e.cursor--
	e.buf.Remove(e.cursor, 1)
	e.dirty = true
}

func (e *editor) deleteForward() {
	if e.cursor >= e.buf.LenChars() {
		return
	}
	e.buf.Remove(e.cursor, 1)
	e.dirty = true
}

func (e *editor) moveUp() {
	line, col := e.lineCol()
	if line == 0 {
		e.cursor = 0
		return
	}
	e.cursor = e.charOffset(line-1, col)
}

func (e *editor) moveDown() {
	line, col := e.lineCol()
	e.cursor = e.charOffset(line+1, col)
}

func (e *editor) save() {
	if e.path == "" {
		e.log.add("no file path; nothing to save")
		return
	}
	if err := os.WriteFile(e.path, []byte(e.buf.String()), 0o644); err != nil {
		e.log.add("save failed: %v", err)
		return
	}
	e.dirty = false
	e.log.add("saved %s (%d bytes)", e.path, e.buf.LenBytes())
}

// reload discards in-memory edits and re-reads the file from disk, used
// after an external-change notification.
func (e *editor) reload() {
	if e.path == "" {
		return
	}
	data, err := os.ReadFile(e.path)
	if err != nil {
		e.log.add("reload failed: %v", err)
		return
	}
	e.buf = buffer.NewFromString(string(data))
	if e.cursor > e.buf.LenChars() {
		e.cursor = e.buf.LenChars()
	}
	e.dirty = false
	e.log.add("reloaded %s from disk (%d chars)", e.path, e.buf.LenChars())
}

func (e *editor) yank() {
	if err := clipboard.WriteAll(e.buf.String()); err != nil {
		e.log.add("clipboard copy failed: %v", err)
		return
	}
	e.log.add("copied %d chars to clipboard", e.buf.LenChars())
}

func (e *editor) paste() {
	text, err := clipboard.ReadAll()
	if err != nil {
		e.log.add("clipboard paste failed: %v", err)
		return
	}
	e.buf.Insert(e.cursor, text)
	e.cursor += len([]rune(text))
	e.dirty = true
	e.log.add("pasted %d chars from clipboard", len([]rune(text)))
}

func (e *editor) draw(screen tcell.Screen) {
	screen.Clear()
	w, h := screen.Size()

	textStyle := tcell.StyleDefault
	gutterStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)

	ls := e.lines()
	cursorLine, cursorCol := e.lineCol()
	if cursorLine < e.top {
		e.top = cursorLine
	}
	if bodyRows := h - 1; cursorLine >= e.top+bodyRows {
		e.top = cursorLine - bodyRows + 1
	}

	gutterWidth := len(fmt.Sprintf("%d", len(ls))) + 1
	bodyRows := h - 1
	for row := 0; row < bodyRows; row++ {
		li := e.top + row
		if li >= len(ls) {
			break
		}
		gutter := fmt.Sprintf("%*d ", gutterWidth-1, li+1)
		for i, r := range gutter {
			screen.SetContent(i, row, r, nil, gutterStyle)
		}
		for i, r := range ls[li] {
			x := gutterWidth + i
			if x >= w {
				break
			}
			screen.SetContent(x, row, r, nil, textStyle)
		}
	}

	status := e.statusLine(w)
	for i, r := range status {
		screen.SetContent(i, h-1, r, nil, tcell.StyleDefault.Reverse(true))
	}

	screen.ShowCursor(gutterWidth+cursorCol, cursorLine-e.top)
	screen.Show()
}

func (e *editor) statusLine(width int) string {
	dirtyMark := ""
	if e.dirty {
		dirtyMark = "*"
	}
	name := e.path
	if name == "" {
		name = "[no file]"
	}
	left := fmt.Sprintf(" %s%s  %d chars, %d bytes  %s", name, dirtyMark, e.buf.LenChars(), e.buf.LenBytes(), e.log.last())
	if len(left) > width {
		left = left[:width]
	}
	return left + strings.Repeat(" ", max(0, width-len(left)))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func run() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal")
	}

	var path string
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	ed := newEditor(path)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault)
	screen.EnableMouse()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	externalChange := make(chan struct{}, 1)
	if ed.path != "" {
		if watcher, err := fsnotify.NewWatcher(); err == nil {
			defer watcher.Close()
			if err := watcher.Add(ed.path); err == nil {
				go func() {
					for {
						select {
						case ev, ok := <-watcher.Events:
							if !ok {
								return
							}
							if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
								select {
								case externalChange <- struct{}{}:
								default:
								}
							}
						case _, ok := <-watcher.Errors:
							if !ok {
								return
							}
						}
					}
				}()
			}
		}
	}

	ed.draw(screen)
	for {
		select {
		case <-externalChange:
			if !ed.dirty {
				ed.reload()
			} else {
				ed.log.add("file changed on disk; Ctrl+R to discard edits and reload")
			}

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyCtrlC, tcell.KeyCtrlQ:
					return nil
				case tcell.KeyCtrlS:
					ed.save()
				case tcell.KeyCtrlR:
					ed.reload()
				case tcell.KeyCtrlY:
					ed.yank()
				case tcell.KeyCtrlV:
					ed.paste()
				case tcell.KeyEnter:
					ed.insertRune('\n')
				case tcell.KeyBackspace, tcell.KeyBackspace2:
					ed.backspace()
				case tcell.KeyDelete:
					ed.deleteForward()
				case tcell.KeyLeft:
					if ed.cursor > 0 {
						ed.cursor--
					}
				case tcell.KeyRight:
					if ed.cursor < ed.buf.LenChars() {
						ed.cursor++
					}
				case tcell.KeyUp:
					ed.moveUp()
				case tcell.KeyDown:
					ed.moveDown()
				case tcell.KeyHome:
					line, _ := ed.lineCol()
					ed.cursor = ed.charOffset(line, 0)
				case tcell.KeyEnd:
					line, _ := ed.lineCol()
					ed.cursor = ed.charOffset(line, 1<<30)
				case tcell.KeyTab:
					ed.insertRune('\t')
				case tcell.KeyRune:
					ed.insertRune(ev.Rune())
				}
			}
		}
		ed.draw(screen)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ropeterm:", err)
		os.Exit(1)
	}
}
