package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"TrendScout/internal/model"
)

// RESTFetcher implements Fetcher against a generic bar-serving REST API
// exposing /api/v1/bars/daily?symbol=&from=&to=.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

func (f *RESTFetcher) FetchDailyBars(symbol string, from, to time.Time) ([]model.Bar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&from=%s&to=%s",
		f.BaseURL, url.QueryEscape(symbol),
		model.Day(from).Format(model.DateKey), model.Day(to).Format(model.DateKey))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, Permanent(symbol, err)
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, Transient(symbol, fmt.Errorf("fetch bars: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(symbol, fmt.Errorf("read bars: %w", err))
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, Permanent(symbol, fmt.Errorf("bars API: symbol not found"))
	case resp.StatusCode != http.StatusOK:
		return nil, Transient(symbol, fmt.Errorf("bars API: status %d, body: %s", resp.StatusCode, string(body)))
	}

	if !gjson.ValidBytes(body) {
		return nil, Permanent(symbol, fmt.Errorf("bars API: malformed response"))
	}
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() && apiErr.String() != "" {
		return nil, Permanent(symbol, fmt.Errorf("bars API error: %s", apiErr.String()))
	}
	rows := gjson.GetBytes(body, "bars")
	if !rows.IsArray() {
		return nil, Permanent(symbol, fmt.Errorf("bars API: missing bars array"))
	}

	fetchedAt := time.Now().UTC()
	var bars []model.Bar
	var parseErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		date, err := time.ParseInLocation(model.DateKey, row.Get("date").String(), time.UTC)
		if err != nil {
			parseErr = fmt.Errorf("bars API: bad date %q", row.Get("date").String())
			return false
		}
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Date:      date,
			Open:      row.Get("open").Float(),
			High:      row.Get("high").Float(),
			Low:       row.Get("low").Float(),
			Close:     row.Get("close").Float(),
			Volume:    row.Get("volume").Float(),
			FetchedAt: fetchedAt,
		})
		return true
	})
	if parseErr != nil {
		return nil, Permanent(symbol, parseErr)
	}
	if len(bars) == 0 {
		return nil, Permanent(symbol, fmt.Errorf("bars API: no data returned"))
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
