package sina

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/wonny/fundflow/internal/contracts"
	"github.com/wonny/fundflow/pkg/config"
	"github.com/wonny/fundflow/pkg/httputil"
	"github.com/wonny/fundflow/pkg/logger"
)

// ErrMalformedBody is returned when a page body is not a JSON array of objects
var ErrMalformedBody = errors.New("malformed response body")

// Client handles communication with the Sina money-flow endpoint
// ⭐ SSOT: Sina 자금흐름 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	sortField  string
	ascending  bool
	encoding   string
}

// NewClient creates a new Sina client. Headers (User-Agent, Referer) are expected
// to be configured on httpClient.
func NewClient(httpClient *httputil.Client, cfg config.SinaConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "sina"),
		baseURL:    cfg.BaseURL,
		sortField:  cfg.SortField,
		ascending:  cfg.Ascending,
		encoding:   cfg.Encoding,
	}
}

// APISymbol strips separator characters from an exchange-qualified symbol:
// "sh.600519" → "sh600519".
func APISymbol(symbol string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '_', ' ', ':', '/':
			return -1
		}
		return r
	}, symbol)
}

// PageURL builds the request URL for one page
func (c *Client) PageURL(symbol string, page, size int) string {
	asc := "0"
	if c.ascending {
		asc = "1"
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("num", strconv.Itoa(size))
	params.Set("sort", c.sortField)
	params.Set("asc", asc)
	params.Set("daima", APISymbol(symbol))

	return fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
}

// FetchPage fetches and parses a single page. No retry is attempted.
func (c *Client) FetchPage(ctx context.Context, symbol string, page, size int) ([]contracts.RawRecord, error) {
	resp, err := c.httpClient.Get(ctx, c.PageURL(symbol, page, size))
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(c.decode(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return parsePage(body)
}

// decode wraps the body with the configured charset decoder
func (c *Client) decode(r io.Reader) io.Reader {
	switch c.encoding {
	case "gbk":
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	case "gb18030":
		return transform.NewReader(r, simplifiedchinese.GB18030.NewDecoder())
	default:
		return r
	}
}

// parsePage turns a JSON array of objects into raw records.
// An empty body or a JSON null is an empty page.
func parsePage(body []byte) ([]contracts.RawRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedBody)
	}

	result := gjson.ParseBytes(body)
	if result.Type == gjson.Null {
		return nil, nil
	}
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrMalformedBody, result.Type)
	}

	items := result.Array()
	records := make([]contracts.RawRecord, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: element %d is %s, not an object", ErrMalformedBody, i, item.Type)
		}

		record := make(contracts.RawRecord)
		item.ForEach(func(key, value gjson.Result) bool {
			switch value.Type {
			case gjson.Null:
				record[key.String()] = ""
			case gjson.Number:
				// raw literal: String() would round through float64
				record[key.String()] = value.Raw
			default:
				record[key.String()] = value.String()
			}
			return true
		})
		records = append(records, record)
	}

	return records, nil
}
