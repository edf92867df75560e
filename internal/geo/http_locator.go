package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrInvalidURLTemplate = errors.New("lookup url must contain exactly one %s and no other verbs")

// HTTPLocator queries an ip-api.com compatible JSON endpoint.
type HTTPLocator struct {
	urlTemplate string
	client      *http.Client
}

// NewHTTPLocator проверяет шаблон: единственный % в нём должен быть %s под IP
func NewHTTPLocator(urlTemplate string, timeout time.Duration) (*HTTPLocator, error) {
	if strings.Count(urlTemplate, "%") != 1 || strings.Count(urlTemplate, "%s") != 1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURLTemplate, urlTemplate)
	}
	return &HTTPLocator{
		urlTemplate: urlTemplate,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
}

func (h *HTTPLocator) Locate(ctx context.Context, ip string) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(h.urlTemplate, url.PathEscape(ip)), nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo lookup returned status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("failed to decode geo lookup: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return Location{}, fmt.Errorf("geo lookup failed: %s", body.Message)
	}

	return Location{Country: body.CountryCode, Region: body.RegionName, City: body.City}, nil
}
