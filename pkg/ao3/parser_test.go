package ao3

import (
	"testing"

	"github.com/thalida/ao3-sync/pkg/logger"
)

const bookmarksPageHTML = `<html><body>
<ol class="pagination actions">
  <li class="previous"><span class="disabled">Previous</span></li>
  <li><span class="current">1</span></li>
  <li><a href="/bookmarks?page=2">2</a></li>
  <li><a href="/bookmarks?page=3">3</a></li>
  <li class="next"><a href="/bookmarks?page=2" rel="next">Next</a></li>
</ol>
<ol class="bookmark index group">
  <li id="bookmark_300" class="bookmark blurb group">
    <h4 class="heading">
      <a href="/works/9001">Newest Work</a>
      <a href="/users/someauthor/pseuds/someauthor" rel="author">someauthor</a>
    </h4>
  </li>
  <li id="bookmark_200" class="bookmark blurb group">
    <h4 class="heading">
      <a href="/series/77">A Series</a>
      <a href="/users/other/pseuds/other" rel="author">other</a>
    </h4>
  </li>
  <li class="bookmark blurb group">
    <h4 class="heading">
      <a href="/works/1">Row Without Id</a>
    </h4>
  </li>
  <li id="bookmark_100" class="bookmark blurb group">
    <h4 class="heading">
      <a href="/external_works/5">External Work</a>
    </h4>
  </li>
</ol>
</body></html>`

func TestParserBookmarksPage(t *testing.T) {
	log := logger.NewTestLogger()
	p := NewParser(log)

	page, err := p.BookmarksPage([]byte(bookmarksPageHTML))
	if err != nil {
		t.Fatalf("Failed to parse bookmarks page: %v", err)
	}

	// The malformed rows are skipped, not fatal
	if len(page.Bookmarks) != 2 {
		t.Fatalf("Expected 2 bookmarks, got %d", len(page.Bookmarks))
	}
	if len(log.MessagesAt("WARN")) != 2 {
		t.Errorf("Expected 2 skip warnings, got %d", len(log.MessagesAt("WARN")))
	}

	first := page.Bookmarks[0]
	if first.ID != "bookmark_300" {
		t.Errorf("Expected bookmark_300 first, got %q", first.ID)
	}
	if first.Item.Type != ItemTypeWork || first.Item.ID != "9001" {
		t.Errorf("Unexpected first item: %+v", first.Item)
	}
	if first.Item.Title != "Newest Work" {
		t.Errorf("Unexpected title: %q", first.Item.Title)
	}

	second := page.Bookmarks[1]
	if second.Item.Type != ItemTypeSeries || second.Item.ID != "77" {
		t.Errorf("Unexpected second item: %+v", second.Item)
	}

	if !page.HasNextPage {
		t.Error("Expected HasNextPage to be true")
	}
}

func TestParserBookmarksLastPage(t *testing.T) {
	p := NewParser(logger.NewTestLogger())
	body := `<html><body>
		<ol class="pagination">
			<li><a href="?page=1">1</a></li>
			<li><span class="current">2</span></li>
		</ol>
		<ol class="bookmark index group"></ol>
	</body></html>`

	page, err := p.BookmarksPage([]byte(body))
	if err != nil {
		t.Fatalf("Failed to parse last page: %v", err)
	}
	if page.HasNextPage {
		t.Error("Expected HasNextPage to be false on the last page")
	}
	if len(page.Bookmarks) != 0 {
		t.Errorf("Expected no bookmark rows, got %d", len(page.Bookmarks))
	}
}

func TestParserPageCount(t *testing.T) {
	p := NewParser(logger.NewTestLogger())

	t.Run("paginated listing", func(t *testing.T) {
		count, err := p.PageCount([]byte(bookmarksPageHTML))
		if err != nil {
			t.Fatalf("Failed to read page count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3 pages, got %d", count)
		}
	})

	t.Run("no pagination control", func(t *testing.T) {
		count, err := p.PageCount([]byte(`<html><body><ol class="bookmark"></ol></body></html>`))
		if err != nil {
			t.Fatalf("Failed to read page count: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected 0 pages for unpaginated listing, got %d", count)
		}
	})

	t.Run("too few pagination cells", func(t *testing.T) {
		body := `<html><body><ol class="pagination"><li><span>1</span></li></ol></body></html>`
		count, err := p.PageCount([]byte(body))
		if err != nil {
			t.Fatalf("Failed to read page count: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected 0 pages, got %d", count)
		}
	})
}

func TestParserDownloadLinks(t *testing.T) {
	body := `<html><body><div id="main">
<ul class="work navigation actions">
  <li class="download" aria-haspopup="true">
    <a href="#">Download</a>
    <ul class="expandable secondary">
      <li><a href="/downloads/412/work.azw3?updated_at=1700000000">AZW3</a></li>
      <li><a href="/downloads/412/work.epub?updated_at=1700000000">EPUB</a></li>
      <li><a href="/downloads/412/work.mobi?updated_at=1700000000">MOBI</a></li>
      <li><a href="/downloads/412/work.pdf?updated_at=1700000000">PDF</a></li>
      <li><a href="/downloads/412/work.html?updated_at=1700000000">HTML</a></li>
    </ul>
  </li>
</ul>
</div></body></html>`

	p := NewParser(logger.NewTestLogger())
	links, err := p.DownloadLinks([]byte(body))
	if err != nil {
		t.Fatalf("Failed to parse download links: %v", err)
	}

	if len(links) != 5 {
		t.Fatalf("Expected 5 links, got %d: %v", len(links), links)
	}
	if links[1] != "/downloads/412/work.epub?updated_at=1700000000" {
		t.Errorf("Unexpected epub link: %q", links[1])
	}
}

func TestParserSeriesWorkIDs(t *testing.T) {
	body := `<html><body>
<ul class="series work index group">
  <li id="work_10"><h4 class="heading">
    <a href="/works/10">First</a>
    <a href="/users/a/pseuds/a" rel="author">a</a>
  </h4></li>
  <li id="work_20"><h4 class="heading">
    <a href="/works/20">Second</a>
  </h4></li>
  <li id="work_10_dup"><h4 class="heading">
    <a href="/works/10">First Again</a>
  </h4></li>
</ul>
</body></html>`

	p := NewParser(logger.NewTestLogger())
	ids, err := p.SeriesWorkIDs([]byte(body))
	if err != nil {
		t.Fatalf("Failed to parse series page: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("Expected 2 work ids, got %v", ids)
	}
	if ids[0] != "10" || ids[1] != "20" {
		t.Errorf("Expected ordered ids [10 20], got %v", ids)
	}
}

func TestAuthenticityToken(t *testing.T) {
	body := `<html><body><form action="/users/login">
<input type="hidden" name="authenticity_token" value="tok123abc" />
</form></body></html>`

	token, err := authenticityToken([]byte(body))
	if err != nil {
		t.Fatalf("Failed to extract token: %v", err)
	}
	if token != "tok123abc" {
		t.Errorf("Expected tok123abc, got %q", token)
	}

	if _, err := authenticityToken([]byte(`<html><body></body></html>`)); err == nil {
		t.Error("Expected error when the token is missing")
	}
}
