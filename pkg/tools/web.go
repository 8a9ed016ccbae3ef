package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// WebConfig configures the web lookup tools.
type WebConfig struct {
	SearchURL    string
	SearchAPIKey string
	HTTPClient   *http.Client
	// EnableBrowser gates the headless browser tool; rendering a page
	// needs a local Chrome.
	EnableBrowser bool
}

// webBrowser lazily launches one shared headless Chrome.
type webBrowser struct {
	mu      sync.Mutex
	browser *rod.Browser
}

func (wb *webBrowser) get() (*rod.Browser, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if wb.browser != nil {
		return wb.browser, nil
	}

	controlURL, err := launcher.New().Headless(true).NoSandbox(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	wb.browser = browser
	return browser, nil
}

// RegisterWebTools wires web search and page reading.
func RegisterWebTools(r *Registry, cfg WebConfig) error {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	if cfg.SearchURL != "" {
		err := r.Register(Tool{
			Name:        "web_search",
			Description: "Search the web and return raw result snippets.",
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: "Search query", Required: true},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				q := url.Values{"q": {argString(args, "query", "")}}
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.SearchURL+"?"+q.Encode(), nil)
				if err != nil {
					return nil, err
				}
				if cfg.SearchAPIKey != "" {
					req.Header.Set("Authorization", "Bearer "+cfg.SearchAPIKey)
				}
				req.Header.Set("Accept", "application/json")

				resp, err := client.Do(req)
				if err != nil {
					return nil, fmt.Errorf("search request failed: %w", err)
				}
				defer resp.Body.Close()

				if resp.StatusCode != http.StatusOK {
					return nil, fmt.Errorf("search service returned %d", resp.StatusCode)
				}

				body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
				if err != nil {
					return nil, fmt.Errorf("failed to read search response: %w", err)
				}
				return string(body), nil
			},
		})
		if err != nil {
			return err
		}
	}

	if cfg.EnableBrowser {
		wb := &webBrowser{}
		err := r.Register(Tool{
			Name:        "read_webpage",
			Description: "Load a web page in a headless browser and return its visible text.",
			Parameters: []Parameter{
				{Name: "url", Type: "string", Description: "Page URL to read", Required: true},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				browser, err := wb.get()
				if err != nil {
					return nil, err
				}

				page, err := browser.Page(proto.TargetCreateTarget{URL: argString(args, "url", "")})
				if err != nil {
					return nil, fmt.Errorf("failed to open page: %w", err)
				}
				defer page.Close()

				page = page.Context(ctx).Timeout(30 * time.Second)
				if err := page.WaitLoad(); err != nil {
					return nil, fmt.Errorf("page did not finish loading: %w", err)
				}

				el, err := page.Element("body")
				if err != nil {
					return nil, fmt.Errorf("page has no body: %w", err)
				}
				text, err := el.Text()
				if err != nil {
					return nil, fmt.Errorf("failed to extract page text: %w", err)
				}

				if len(text) > 16<<10 {
					text = text[:16<<10]
				}
				return text, nil
			},
		})
		if err != nil {
			return err
		}
	}

	return nil
}
