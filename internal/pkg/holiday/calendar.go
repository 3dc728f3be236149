package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.pin-yi.me/taiwan-calendar"

type entry struct {
	IsHoliday   bool   `json:"isHoliday"`
	Description string `json:"description"`
}

// CalendarChecker asks a Taiwan calendar API whether a date is a holiday.
type CalendarChecker struct {
	baseURL string
	client  *http.Client
}

func NewCalendarChecker(baseURL string, timeout time.Duration) *CalendarChecker {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CalendarChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *CalendarChecker) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	endpoint := fmt.Sprintf("%s/%d/%d/%d", c.baseURL, date.Year(), int(date.Month()), date.Day())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("holiday request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("holiday request failed with status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return false, fmt.Errorf("failed to decode holiday response: %w", err)
	}

	// The API answers with either a one-element list or a bare object
	var list []entry
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return false, nil
		}
		return list[0].IsHoliday, nil
	}

	var single entry
	if err := json.Unmarshal(raw, &single); err != nil {
		return false, fmt.Errorf("failed to decode holiday response: %w", err)
	}
	return single.IsHoliday, nil
}
