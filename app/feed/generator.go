package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/feedsync/app/cfg"
	"github.com/lysyi3m/feedsync/app/database"
)

// Generator renders a source's stored articles as an RSS 2.0 document.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(source database.Source, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">`)
	buf.WriteString("\n  <channel>\n")

	title := cmp.Or(source.Name, source.ID)
	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", source.URL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Latest articles from %s", title), 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = fmt.Sprintf("%s/feeds/%s", cfg.Get().BaseUrl, source.ID)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s/feeds/%s", cfg.Get().Port, source.ID)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = articles[0].FetchedAt
	} else if source.LastFetchedAt != nil {
		lastBuildDate = *source.LastFetchedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("feedsync/%s", cfg.Get().Version), 4)
	g.writeElement(&buf, "language", source.Language, 4)
	g.writeElement(&buf, "category", source.Category, 4)

	if source.ImageURL != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", source.ImageURL, 6)
		g.writeElement(&buf, "title", title, 6)
		g.writeElement(&buf, "link", source.URL, 6)
		buf.WriteString("    </image>\n")
	}

	for _, article := range articles {
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	guid := cmp.Or(article.GUID, article.ID)
	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(guid)))
	xml.EscapeText(buf, []byte(guid))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.Link, 6)
	g.writeElement(buf, "description", cmp.Or(article.Description, "No description available"), 6)
	g.writeElement(buf, "pubDate", article.PubDate.Format(time.RFC1123Z), 6)

	if article.Thumbnail != "" {
		buf.WriteString(fmt.Sprintf("      <media:thumbnail url=\"%s\" />\n", html.EscapeString(article.Thumbnail)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
