package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMetadataFilterMatch(t *testing.T) {
	md := Metadata{"status": "Open", "priority": "2", "created": "2024-03-15"}

	t.Run("Nil and empty filters match everything", func(t *testing.T) {
		var f *MetadataFilter
		assert.True(t, f.Match(md))
		assert.True(t, (&MetadataFilter{}).Match(md))
	})

	t.Run("Exact match", func(t *testing.T) {
		assert.True(t, (&MetadataFilter{Equals: map[string]string{"status": "Open"}}).Match(md))
		assert.False(t, (&MetadataFilter{Equals: map[string]string{"status": "Closed"}}).Match(md))
		assert.False(t, (&MetadataFilter{Equals: map[string]string{"team": "A"}}).Match(md), "Missing key must not match")
	})

	t.Run("Numeric range", func(t *testing.T) {
		assert.True(t, (&MetadataFilter{Ranges: []RangeCondition{{Key: "priority", Min: strPtr("1"), Max: strPtr("3")}}}).Match(md))
		assert.False(t, (&MetadataFilter{Ranges: []RangeCondition{{Key: "priority", Min: strPtr("10")}}}).Match(md), "2 < 10 numerically")
	})

	t.Run("Date range compares lexicographically", func(t *testing.T) {
		inRange := &MetadataFilter{Ranges: []RangeCondition{{Key: "created", Min: strPtr("2024-01-01"), Max: strPtr("2024-12-31")}}}
		outOfRange := &MetadataFilter{Ranges: []RangeCondition{{Key: "created", Max: strPtr("2024-03-14")}}}

		assert.True(t, inRange.Match(md))
		assert.False(t, outOfRange.Match(md))
	})

	t.Run("Only decimal numbers compare numerically", func(t *testing.T) {
		f := &MetadataFilter{Ranges: []RangeCondition{{Key: "score", Min: strPtr("1"), Max: strPtr("3")}}}

		assert.True(t, f.Match(Metadata{"score": "2.5e0"}))
		for _, value := range []string{"NaN", "Inf", " 2", "0x2", "0x1p1"} {
			assert.False(t, f.Match(Metadata{"score": value}), "Expected %q to compare as text", value)
		}
		assert.Equal(t, 1, CompareMetadataValues("NaN", "1"))
		assert.Equal(t, 0, CompareMetadataValues(".5", "0.50"))
	})

	t.Run("Bounds are inclusive", func(t *testing.T) {
		f := &MetadataFilter{Ranges: []RangeCondition{{Key: "priority", Min: strPtr("2"), Max: strPtr("2")}}}
		assert.True(t, f.Match(md))
	})

	t.Run("All conditions must hold", func(t *testing.T) {
		f := &MetadataFilter{
			Equals: map[string]string{"status": "Open"},
			Ranges: []RangeCondition{{Key: "priority", Min: strPtr("3")}},
		}
		assert.False(t, f.Match(md))
	})
}

func TestParseMetadataFilter(t *testing.T) {
	t.Run("No terms give no filter", func(t *testing.T) {
		f, err := ParseMetadataFilter(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("Equality and ranges", func(t *testing.T) {
		f, err := ParseMetadataFilter(
			[]string{"priority=High", "team=support=eu"},
			[]string{"created=2024-01-01:2024-06-30", "score=3:", "row=:10"},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"priority": "High", "team": "support=eu"}, f.Equals)
		require.Len(t, f.Ranges, 3)
		assert.Equal(t, "2024-01-01", *f.Ranges[0].Min)
		assert.Equal(t, "2024-06-30", *f.Ranges[0].Max)
		assert.Equal(t, "3", *f.Ranges[1].Min)
		assert.Nil(t, f.Ranges[1].Max)
		assert.Nil(t, f.Ranges[2].Min)
		assert.Equal(t, "10", *f.Ranges[2].Max)

		assert.True(t, f.Match(Metadata{"priority": "High", "team": "support=eu", "created": "2024-03-01", "score": "7", "row": "2"}))
		assert.False(t, f.Match(Metadata{"priority": "High", "team": "support=eu", "created": "2024-07-01", "score": "7", "row": "2"}))
	})

	t.Run("Rejects malformed terms", func(t *testing.T) {
		for _, c := range []struct{ equals, ranges []string }{
			{equals: []string{"priority"}},
			{equals: []string{"=High"}},
			{ranges: []string{"created"}},
			{ranges: []string{"created=2024"}},
			{ranges: []string{"created=:"}},
		} {
			_, err := ParseMetadataFilter(c.equals, c.ranges)
			assert.Error(t, err, "Expected %v %v to be rejected", c.equals, c.ranges)
		}
	})
}
