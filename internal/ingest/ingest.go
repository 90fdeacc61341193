// Package ingest turns files and web pages into project documents.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

// DefaultChunkSize bounds the characters per stored passage.
const DefaultChunkSize = 1500

const (
	maxBodyBytes   = 10 << 20
	minContentSize = 100
)

// Fetcher downloads pages and extracts readable text.
type Fetcher struct {
	client    *http.Client
	chunkSize int
}

// NewFetcher creates a fetcher. A zero timeout means 15 seconds.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		chunkSize: DefaultChunkSize,
	}
}

// FetchURL returns the readable text of the page at rawURL.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "offsetvalidator/1.0 (document ingest)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: %s", rawURL, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return strings.TrimSpace(string(body)), nil
	}
	return extract(body, u)
}

// ReadFile returns the text of a local file. HTML files go through
// readability; anything else is read as plain text.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		abs, _ := filepath.Abs(path)
		return extract(data, &url.URL{Scheme: "file", Path: abs})
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

func extract(body []byte, u *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", u, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentSize {
		return "", fmt.Errorf("no extractable content in %s", u)
	}
	return text, nil
}

// Documents loads every source, which may be http(s) URLs or file paths,
// and splits it into passages for projectCode.
func (f *Fetcher) Documents(ctx context.Context, projectCode string, source project.DocumentSource, sources []string) ([]project.Document, error) {
	var docs []project.Document
	for _, src := range sources {
		var (
			text string
			err  error
		)
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			text, err = f.FetchURL(ctx, src)
		} else {
			text, err = ReadFile(src)
		}
		if err != nil {
			return nil, err
		}
		chunks := Chunk(text, f.chunkSize)
		logging.Log.Infof("Loaded %s: %d passages", src, len(chunks))
		for _, c := range chunks {
			docs = append(docs, project.Document{ProjectCode: projectCode, Text: c, Source: source})
		}
	}
	return docs, nil
}

// Chunk splits text on blank lines and packs paragraphs into passages of at
// most size characters. A single paragraph longer than size is split on
// word boundaries.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(para) > size {
			flush()
		}
		if len(para) <= size {
			if cur.Len() > 0 {
				cur.WriteString("\n\n")
			}
			cur.WriteString(para)
			continue
		}
		for _, word := range strings.Fields(para) {
			if cur.Len() > 0 && cur.Len()+1+len(word) > size {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
		}
	}
	flush()
	return chunks
}
