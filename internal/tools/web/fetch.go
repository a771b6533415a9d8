// Package web provides the network fetch tool.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"aide/internal/logging"
	"aide/internal/tools"
)

const fetchBodyLimit = 2 << 20 // 2MB

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// FetchURLTool returns a tool for fetching a URL and reducing it to readable
// text. HTML is flattened to a markdown-ish form; plain text passes through.
func FetchURLTool() *tools.Tool {
	return &tools.Tool{
		Name:                 "fetch_url",
		Description:          "Fetch a URL and return its content as readable text",
		Category:             tools.CategoryWeb,
		Execute:              executeFetchURL,
		RequiresConfirmation: true,
		Schema: tools.Schema{
			Required: []string{"url"},
			Properties: map[string]tools.Property{
				"url": {
					Type:        "string",
					Description: "The URL to fetch",
				},
				"max_length": {
					Type:        "integer",
					Description: "Maximum content length in characters (default: 20000)",
					Default:     20000,
				},
				"include_links": {
					Type:        "boolean",
					Description: "Include hyperlink targets in the output (default: false)",
					Default:     false,
				},
			},
		},
	}
}

func executeFetchURL(ctx context.Context, args map[string]any) (string, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return "", fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("only http and https URLs are supported")
	}

	maxLength := 20000
	if ml, ok := intArg(args, "max_length"); ok && ml > 0 {
		maxLength = ml
	}

	includeLinks := false
	if il, ok := args["include_links"].(bool); ok {
		includeLinks = il
	}

	logging.ToolsDebug("fetch_url: url=%s, max_length=%d", url, maxLength)

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "aide/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")

	var result string
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "xhtml") {
		result, err = flattenHTML(string(body), includeLinks)
		if err != nil {
			return "", fmt.Errorf("failed to parse HTML: %w", err)
		}
	} else {
		result = string(body)
	}

	if len(result) > maxLength {
		result = result[:maxLength] + "\n\n[...truncated...]"
	}

	logging.Tools("fetch_url completed: %s (%d chars)", url, len(result))
	return result, nil
}

// flattenHTML reduces an HTML document to readable markdown-ish text.
func flattenHTML(content string, includeLinks bool) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	walk(doc, &sb, includeLinks, 0)

	text := sb.String()
	text = multiNewlinePattern.ReplaceAllString(text, "\n\n")
	text = multiSpacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func walk(n *html.Node, sb *strings.Builder, includeLinks bool, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer":
			return
		case "title", "h1":
			sb.WriteString("\n\n# ")
		case "h2":
			sb.WriteString("\n\n## ")
		case "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n### ")
		case "p", "div", "tr", "section", "article":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "code":
			sb.WriteString("`")
		case "pre":
			sb.WriteString("\n\n```\n")
		case "a":
			if includeLinks && linkTarget(n) != "" {
				sb.WriteString("[")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb, includeLinks, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "title", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
		case "code":
			sb.WriteString("`")
		case "pre":
			sb.WriteString("\n```\n\n")
		case "a":
			if includeLinks {
				if href := linkTarget(n); href != "" {
					fmt.Fprintf(sb, "](%s)", href)
				}
			}
		}
	}
}

// linkTarget returns the href of an anchor, ignoring fragment-only links.
func linkTarget(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "href" && !strings.HasPrefix(attr.Val, "#") {
			return attr.Val
		}
	}
	return ""
}

func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
