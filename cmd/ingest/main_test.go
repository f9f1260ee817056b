package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/config"
	"github.com/dvloznov/finance-overview/internal/domain"
)

func TestDateRange(t *testing.T) {
	today := domain.NewDate(2024, 10, 15)

	from, to, err := dateRange(today, 30, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-09-15", from.String())
	assert.Equal(t, "2024-10-15", to.String())

	from, to, err = dateRange(today, 30, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", from.String())
	assert.Equal(t, "2024-01-31", to.String())

	_, _, err = dateRange(today, 30, "2024-02-01", "2024-01-31")
	assert.Error(t, err)

	_, _, err = dateRange(today, 30, "yesterday", "")
	assert.Error(t, err)
}

func TestPickFeed(t *testing.T) {
	_, err := pickFeed(&config.Config{}, "")
	assert.Error(t, err)

	feed, err := pickFeed(&config.Config{}, "bank.json")
	require.NoError(t, err)
	assert.NotNil(t, feed)

	feed, err = pickFeed(&config.Config{BalanceFile: "bank.json"}, "")
	require.NoError(t, err)
	assert.NotNil(t, feed)
}
