package importer

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

const minHTMLNoteLength = 10

var (
	// "[00:01:30] - Speaker: text" with the bracket and dash optional
	htmlNoteLine  = regexp.MustCompile(`^\[?(\d{1,2}:\d{2}(?::\d{2})?)\]?\s*[-:]?\s*([^:\[\]]+?):\s*(.+)$`)
	noteClassHint = regexp.MustCompile(`(?i)meeting|notes|content|timestamp`)
)

var blockAtoms = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Table:      true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.Blockquote: true,
}

// HTMLImporter reads transcripts exported as HTML pages
type HTMLImporter struct {
	now func() time.Time
}

// NewHTMLImporter creates an HTML importer using the wall clock
func NewHTMLImporter() *HTMLImporter {
	return &HTMLImporter{now: time.Now}
}

func (h *HTMLImporter) Source() entities.TranscriptSource {
	return entities.SourceHTML
}

func (h *HTMLImporter) Parse(name string, raw []byte) (*entities.Transcript, error) {
	text, err := decode(raw)
	if err != nil {
		return nil, &ParseError{Path: name, Format: h.Source(), Err: err}
	}
	t, err := h.parseBody(meetingIDFromName(name), text)
	if err != nil {
		return nil, &ParseError{Path: name, Format: h.Source(), Err: err}
	}
	return finish(name, t)
}

func (h *HTMLImporter) parseBody(meetingID, text string) (*entities.Transcript, error) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	t := entities.NewTranscript(meetingID, entities.SourceHTML)
	t.Title = htmlTitle(doc)
	t.Company = CompanyFromTitle(t.Title)

	all := leafBlocks(doc)
	blocks := all
	if hinted := hintedBlocks(doc); len(hinted) > 0 {
		blocks = hinted
	}

	for _, b := range all {
		if len(t.Participants) == 0 {
			if m := participantsL.FindStringSubmatch(b); m != nil {
				t.Participants = SplitParticipants(m[1])
			}
		}
	}
	t.Date, t.DateInferred = resolveDate(h.now, t.Title, strings.Join(all, "\n"))

	for _, b := range blocks {
		if len(b) < minHTMLNoteLength || b == t.Title || participantsL.MatchString(b) {
			continue
		}
		if isMetadataLine(b, t.Title) {
			continue
		}
		if m := htmlNoteLine.FindStringSubmatch(b); m != nil && validSpeaker(m[2]) {
			t.Notes = append(t.Notes, entities.NewNote(m[1], m[2], m[3]))
			continue
		}
		if note, ok := ParseNoteLine(b); ok {
			t.Notes = append(t.Notes, note)
		}
	}
	return t, nil
}

// htmlTitle prefers the first h1, then h2, then the document title
func htmlTitle(doc *html.Node) string {
	for _, a := range []atom.Atom{atom.H1, atom.H2, atom.Title} {
		if n := findFirst(doc, a); n != nil {
			if s := collapse(textContent(n)); s != "" {
				return s
			}
		}
	}
	return ""
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// hintedBlocks returns the leaf blocks inside elements whose class names
// suggest meeting content.
func hintedBlocks(doc *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && blockAtoms[n.DataAtom] && noteClassHint.MatchString(attr(n, "class")) {
			out = append(out, leafBlocks(n)...)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// leafBlocks returns the collapsed text of every block element that has no
// block-level descendants.
func leafBlocks(root *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			}
			if blockAtoms[n.DataAtom] && !hasBlockChild(n) {
				if s := collapse(textContent(n)); s != "" {
					out = append(out, s)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockAtoms[c.DataAtom] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
