package holiday

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHoliday(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/2024/10/10":
			w.Write([]byte(`[{"date":"20241010","week":"四","isHoliday":true,"description":"國慶日"}]`))
		case "/2024/10/11":
			w.Write([]byte(`{"date":"20241011","isHoliday":false}`))
		case "/2024/10/12":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewCalendarChecker(srv.URL+"/", time.Second)
	ctx := context.Background()

	holiday, err := c.IsHoliday(ctx, time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, holiday)
	assert.Equal(t, "/2024/10/10", gotPath)

	holiday, err = c.IsHoliday(ctx, time.Date(2024, 10, 11, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, holiday)

	holiday, err = c.IsHoliday(ctx, time.Date(2024, 10, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, holiday)

	_, err = c.IsHoliday(ctx, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestIsHolidayMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewCalendarChecker(srv.URL, time.Second).IsHoliday(context.Background(), time.Now())
	assert.Error(t, err)
}
