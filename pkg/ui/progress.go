package ui

import (
	"fmt"

	"github.com/thalida/ao3-sync/pkg/ao3"
)

// ConsoleProgress prints sync lifecycle events as compact console lines.
// It satisfies the sync engine's Progress interface.
type ConsoleProgress struct {
	totalPages int
	items      int
	done       int
	failed     int
}

// NewConsoleProgress creates a console progress reporter
func NewConsoleProgress() *ConsoleProgress {
	return &ConsoleProgress{}
}

// PagesFound reports the result of the pagination probe
func (p *ConsoleProgress) PagesFound(total int) {
	p.totalPages = total
	if quietMode {
		return
	}
	if total == 0 {
		fmt.Println(Dim("no bookmark pages found"))
		return
	}
	fmt.Printf("found %s of bookmarks\n", Cyan(fmt.Sprintf("%d pages", total)))
}

// PageScanned reports one scanned listing page
func (p *ConsoleProgress) PageScanned(page int, found int) {
	p.items += found
	if quietMode {
		return
	}
	fmt.Printf("%s page %d/%d (%d new)\n", Dim("scanned"), page, p.totalPages, found)
}

// ItemStarted reports the start of one bookmark download
func (p *ConsoleProgress) ItemStarted(b ao3.Bookmark) {
	if quietMode {
		return
	}
	title := b.Item.Title
	if title == "" {
		title = b.Item.ID
	}
	fmt.Printf("  %s %s %q\n", Dim("↓"), b.Item.Type, title)
}

// ItemFinished reports the outcome of one bookmark download
func (p *ConsoleProgress) ItemFinished(b ao3.Bookmark, complete bool) {
	p.done++
	if !complete {
		p.failed++
	}
	if quietMode {
		return
	}
	status := Green("ok")
	if !complete {
		status = Red("incomplete")
	}
	fmt.Printf("  [%d/%d] %s\n", p.done, p.items, status)
}
