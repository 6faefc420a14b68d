package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{URL: "postgres://localhost/courtside"}.withDefaults()
	assert.Equal(t, defaultMaxIdleConns, opts.MaxIdleConns)
	assert.Equal(t, defaultMaxOpenConns, opts.MaxOpenConns)
	assert.Equal(t, defaultConnMaxLifetime, opts.ConnMaxLifetime)
}

func TestOptionsKeepConfiguredPool(t *testing.T) {
	opts := Options{
		URL:             "postgres://localhost/courtside",
		MaxIdleConns:    4,
		MaxOpenConns:    40,
		ConnMaxLifetime: time.Hour,
	}.withDefaults()

	assert.Equal(t, 4, opts.MaxIdleConns)
	assert.Equal(t, 40, opts.MaxOpenConns)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
}
