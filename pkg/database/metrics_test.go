package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "coursesearch")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 8)
	for _, n := range names {
		assert.True(t, strings.Contains(n, `fqName: "db_pool_`), n)
	}
}

func TestRegisterPoolMetrics_RejectsDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()

	assert.NoError(t, RegisterPoolMetrics(reg, nil, "coursesearch"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "coursesearch"))
}
