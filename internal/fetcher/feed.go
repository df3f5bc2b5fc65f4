package fetcher

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"execbrief/internal/core"
)

// rss represents an RSS feed structure
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

// channel represents an RSS channel
type channel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

// rssItem represents an RSS item
type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// atom represents an Atom feed structure
type atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

// atomLink represents an Atom link element
type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// atomEntry represents an Atom entry
type atomEntry struct {
	Title     string     `xml:"title"`
	Link      []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

// parseFeed attempts to parse the body as RSS first, then Atom.
func parseFeed(body []byte, src core.Source) ([]core.RawItem, error) {
	var feedRSS rss
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feedRSS); err == nil && len(feedRSS.Channel.Items) > 0 {
		return parseRSSItems(feedRSS, src), nil
	}

	var feedAtom atom
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feedAtom); err == nil && len(feedAtom.Entries) > 0 {
		return parseAtomEntries(feedAtom, src), nil
	}

	return nil, fmt.Errorf("unable to parse as RSS or Atom feed")
}

func parseRSSItems(feed rss, src core.Source) []core.RawItem {
	var items []core.RawItem
	for _, item := range feed.Channel.Items {
		items = append(items, newRawItem(src, item.Title, item.Link, item.Description, parseDate(item.PubDate)))
	}
	return items
}

func parseAtomEntries(feed atom, src core.Source) []core.RawItem {
	var items []core.RawItem
	for _, entry := range feed.Entries {
		var link string
		for _, l := range entry.Link {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}

		summary := entry.Summary
		if summary == "" {
			summary = entry.Content
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		items = append(items, newRawItem(src, entry.Title, link, summary, parseDate(published)))
	}
	return items
}

// parseDate parses the date formats seen across RSS, Atom, and JSON
// listings. Returns the zero time when nothing matches; such items are
// kept but sort last in chronological ordering.
func parseDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339,
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
